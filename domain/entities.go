package domain

import "time"

// Role tags carried in the user profile. The platform distinguishes the
// admin back-office from the student/expert facing pages.
const (
	RoleAdmin   = "ADMIN"
	RoleExpert  = "EXPERT"
	RoleStudent = "STUDENT"
)

// OTPMethod is the delivery channel for a one-time code.
type OTPMethod string

const (
	OTPMethodSMS  OTPMethod = "SMS"
	OTPMethodZalo OTPMethod = "ZALO"
)

// OTPPurpose identifies which flow an OTP challenge belongs to.
type OTPPurpose string

const (
	OTPPurposeRegister      OTPPurpose = "register"
	OTPPurposeResetPassword OTPPurpose = "reset-password"
)

// UserProfile is the profile snapshot returned by the auth API and cached
// alongside the token pair.
type UserProfile struct {
	ID        uint     `json:"id"`
	Phone     string   `json:"phone"`
	FullName  string   `json:"fullName"`
	Roles     []string `json:"roles"`
	Points    int      `json:"points"`
	Completed bool     `json:"completed"`
}

// HasRole reports whether the profile carries the given role tag.
func (u *UserProfile) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Clone returns a deep copy so snapshots never alias controller state.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

// Session is the in-memory authoritative record of who is logged in. It is
// owned and mutated exclusively by the session controller; everyone else
// reads copies.
type Session struct {
	User          *UserProfile
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	IsInitialized bool
	Loading       bool
	Error         string
}

// IsAuthenticated is true iff both tokens are present and the tracked
// access-token expiry has not elapsed.
func (s Session) IsAuthenticated(now time.Time) bool {
	if s.AccessToken == "" || s.RefreshToken == "" {
		return false
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return false
	}
	return true
}

// Roles returns the role tags of the current user, nil when logged out.
func (s Session) Roles() []string {
	if s.User == nil {
		return nil
	}
	return s.User.Roles
}

// TokenRecord is the durable counterpart of the Session token fields. It is
// always written and cleared as a whole tuple.
type TokenRecord struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         *UserProfile `json:"user,omitempty"`
}

// Complete reports whether the record holds the full token pair. A record
// that fails this check is treated as absent, never partially trusted. A
// zero expiry is a valid state: the server did not say when the access
// token dies, so the record never expires locally and the server stays the
// authority.
func (r *TokenRecord) Complete() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != ""
}

// Expired reports whether the record's expiry has elapsed by more than the
// given grace duration. A record without an expiry never expires locally,
// matching Session.IsAuthenticated.
func (r *TokenRecord) Expired(now time.Time, grace time.Duration) bool {
	if r == nil {
		return true
	}
	if r.ExpiresAt.IsZero() {
		return false
	}
	return now.After(r.ExpiresAt.Add(grace))
}

// AuthState is the computed snapshot exposed by the token store.
type AuthState struct {
	IsAuthenticated bool
	HasValidSession bool
}

// AuthPayload is the data portion of a successful auth API response.
type AuthPayload struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn,omitempty"`
	User         *UserProfile `json:"user,omitempty"`
	Completed    *bool        `json:"completed,omitempty"`
}

// Envelope is the normalized response shape of every auth API call.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    *AuthPayload `json:"data,omitempty"`
}

// SendOTPRequest asks the platform to dispatch a one-time code.
type SendOTPRequest struct {
	Phone   string     `json:"phone"`
	Method  OTPMethod  `json:"method"`
	Purpose OTPPurpose `json:"type,omitempty"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// RegisterRequest completes account creation after an OTP was consumed.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	OTPCode  string `json:"otpCode"`
}

// ResetPasswordRequest finalizes a password change after OTP verification.
type ResetPasswordRequest struct {
	Phone           string `json:"phone"`
	OTPCode         string `json:"otpCode"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is what the session controller hands back to the caller. OK
// false means the server declined; Message carries its reason. Completed
// lets the UI route to profile completion instead of the dashboard.
type LoginResult struct {
	OK        bool
	Completed bool
	Message   string
	User      *UserProfile
}

// RouteRule declares a route's authorization requirement.
type RouteRule struct {
	Path         string   `yaml:"path"`
	RequiresAuth bool     `yaml:"requiresAuth"`
	PublicOnly   bool     `yaml:"publicOnly"`
	Roles        []string `yaml:"roles"`
}

// DecisionKind enumerates the guard's possible outcomes.
type DecisionKind string

const (
	DecisionLoading  DecisionKind = "loading"
	DecisionRender   DecisionKind = "render"
	DecisionRedirect DecisionKind = "redirect"
	DecisionDenied   DecisionKind = "denied"
)

// Decision is the guard's verdict for one navigation. Redirects to the
// login route carry the originally requested path in From; denied decisions
// carry the user's actual roles for display.
type Decision struct {
	Kind       DecisionKind
	RedirectTo string
	From       string
	Roles      []string
}

package domain

import "time"

// SessionEventType defines the type of session audit event
type SessionEventType string

const (
	// Authentication events
	LoginEvent           SessionEventType = "USER_LOGIN"
	LoginFailureEvent    SessionEventType = "USER_LOGIN_FAILED"
	RegistrationEvent    SessionEventType = "USER_REGISTERED"
	PasswordResetEvent   SessionEventType = "PASSWORD_RESET"
	LogoutEvent          SessionEventType = "USER_LOGOUT"
	SessionRestoredEvent SessionEventType = "SESSION_RESTORED"

	// Token lifecycle events
	TokenRefreshEvent        SessionEventType = "TOKEN_REFRESHED"
	TokenRefreshFailureEvent SessionEventType = "TOKEN_REFRESH_FAILED"
	SessionExpiredEvent      SessionEventType = "SESSION_EXPIRED"

	// OTP events
	OTPRequestEvent SessionEventType = "OTP_REQUESTED"

	// Authorization events
	AccessGrantedEvent SessionEventType = "ACCESS_GRANTED"
	AccessDeniedEvent  SessionEventType = "ACCESS_DENIED"
)

// SessionEvent represents a session lifecycle event worth auditing
type SessionEvent struct {
	EventType SessionEventType       `json:"event_type"`
	UserID    uint                   `json:"user_id,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// NewSessionEvent creates a new session event with common fields populated
func NewSessionEvent(eventType SessionEventType) *SessionEvent {
	return &SessionEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithUser sets the user fields from a profile snapshot
func (e *SessionEvent) WithUser(user *UserProfile) *SessionEvent {
	if user != nil {
		e.UserID = user.ID
		e.Phone = user.Phone
	}
	return e
}

// WithPhone sets the phone field
func (e *SessionEvent) WithPhone(phone string) *SessionEvent {
	e.Phone = phone
	return e
}

// WithError marks the event failed and records the message
func (e *SessionEvent) WithError(msg string) *SessionEvent {
	e.Success = false
	e.ErrorMsg = msg
	return e
}

// WithMetadata adds metadata to the event
func (e *SessionEvent) WithMetadata(key string, value interface{}) *SessionEvent {
	e.Metadata[key] = value
	return e
}

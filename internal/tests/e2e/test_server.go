package e2e

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/namhsc/tvtl-sub000/domain"
)

// Every dispatched code verifies against this fixed value so flows are
// deterministic.
const fixedOTPCode = "123456"

const accessTokenTTL = 15 * time.Minute

var signingKey = []byte("e2e-signing-key")

type serverUser struct {
	ID           uint
	Phone        string
	PasswordHash []byte
	FullName     string
	Roles        []string
	Points       int
	Completed    bool
}

// PlatformServer is an in-memory stand-in for the consultation platform's
// auth API. It speaks the same envelope contract the client normalizes,
// hashes passwords with bcrypt and signs real JWTs so token inspection
// works end to end.
type PlatformServer struct {
	mu       sync.Mutex
	users    map[string]*serverUser
	otps     map[string]string
	refresh  map[string]string // refresh token -> phone
	nextID   uint
	otpSends int

	http *httptest.Server
}

// NewPlatformServer starts a fake platform API with a couple of seeded
// accounts.
func NewPlatformServer() *PlatformServer {
	s := &PlatformServer{
		users:   make(map[string]*serverUser),
		otps:    make(map[string]string),
		refresh: make(map[string]string),
		nextID:  1,
	}
	s.seedUser("0900000001", "secret1", "Trần Thị Bình", []string{domain.RoleStudent}, true)
	s.seedUser("0900000002", "secret1", "Lê Văn Cường", []string{domain.RoleExpert}, true)
	s.seedUser("0900000099", "admin99", "Quản trị viên", []string{domain.RoleAdmin}, true)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/otp/send", s.handleSendOTP)
	router.POST("/auth/register", s.handleRegister)
	router.POST("/auth/login", s.handleLogin)
	router.POST("/auth/password/reset", s.handleResetPassword)
	router.POST("/auth/refresh", s.handleRefresh)
	router.POST("/auth/logout", s.handleLogout)
	router.GET("/auth/me", s.handleProfile)

	s.http = httptest.NewServer(router)
	return s
}

// URL returns the server base URL.
func (s *PlatformServer) URL() string { return s.http.URL }

// Close shuts the server down.
func (s *PlatformServer) Close() { s.http.Close() }

// OTPSends returns how many dispatch calls the server has seen.
func (s *PlatformServer) OTPSends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otpSends
}

// RevokeRefreshTokens drops every refresh token, simulating server-side
// session invalidation.
func (s *PlatformServer) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

func (s *PlatformServer) seedUser(phone, password, name string, roles []string, completed bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.users[phone] = &serverUser{
		ID:           s.nextID,
		Phone:        phone,
		PasswordHash: hash,
		FullName:     name,
		Roles:        roles,
		Points:       50,
		Completed:    completed,
	}
	s.nextID++
}

func (s *PlatformServer) issueTokens(user *serverUser) *domain.AuthPayload {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.Phone,
		"roles": user.Roles,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)

	refreshClaims := jwt.MapClaims{"sub": user.Phone, "iat": now.UnixNano()}
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(signingKey)
	s.refresh[refresh] = user.Phone

	return &domain.AuthPayload{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTokenTTL / time.Second),
		User:         profileOf(user),
	}
}

func profileOf(user *serverUser) *domain.UserProfile {
	return &domain.UserProfile{
		ID:        user.ID,
		Phone:     user.Phone,
		FullName:  user.FullName,
		Roles:     append([]string(nil), user.Roles...),
		Points:    user.Points,
		Completed: user.Completed,
	}
}

func (s *PlatformServer) authenticate(c *gin.Context) *serverUser {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return signingKey, nil })
	if err != nil || !token.Valid {
		return nil
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return nil
	}
	return s.users[sub]
}

func decline(c *gin.Context, status int, message string) {
	c.JSON(status, domain.Envelope{Success: false, Message: message})
}

func (s *PlatformServer) handleSendOTP(c *gin.Context) {
	var req domain.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		decline(c, http.StatusBadRequest, "Dữ liệu không hợp lệ")
		return
	}
	if req.Method != "" && req.Method != domain.OTPMethodSMS && req.Method != domain.OTPMethodZalo {
		decline(c, http.StatusBadRequest, "Phương thức gửi mã không được hỗ trợ")
		return
	}

	s.mu.Lock()
	s.otps[req.Phone] = fixedOTPCode
	s.otpSends++
	s.mu.Unlock()

	c.JSON(http.StatusOK, domain.Envelope{Success: true, Message: "Mã xác thực đã được gửi"})
}

func (s *PlatformServer) consumeOTP(phone, code string) bool {
	stored, ok := s.otps[phone]
	if !ok || stored != code {
		return false
	}
	delete(s.otps, phone)
	return true
}

func (s *PlatformServer) handleRegister(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		decline(c, http.StatusBadRequest, "Dữ liệu không hợp lệ")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.consumeOTP(req.Phone, req.OTPCode) {
		decline(c, http.StatusBadRequest, "Mã xác thực không đúng")
		return
	}
	if _, exists := s.users[req.Phone]; exists {
		decline(c, http.StatusConflict, "Số điện thoại đã được đăng ký")
		return
	}

	s.seedUser(req.Phone, req.Password, "", []string{domain.RoleStudent}, false)
	user := s.users[req.Phone]
	c.JSON(http.StatusCreated, domain.Envelope{Success: true, Data: s.issueTokens(user)})
}

func (s *PlatformServer) handleLogin(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		decline(c, http.StatusBadRequest, "Dữ liệu không hợp lệ")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[req.Phone]
	if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		decline(c, http.StatusUnauthorized, "Sai số điện thoại hoặc mật khẩu")
		return
	}
	c.JSON(http.StatusOK, domain.Envelope{Success: true, Data: s.issueTokens(user)})
}

func (s *PlatformServer) handleResetPassword(c *gin.Context) {
	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		decline(c, http.StatusBadRequest, "Dữ liệu không hợp lệ")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[req.Phone]
	if !ok {
		decline(c, http.StatusNotFound, "Tài khoản không tồn tại")
		return
	}
	if !s.consumeOTP(req.Phone, req.OTPCode) {
		decline(c, http.StatusBadRequest, "Mã xác thực không đúng")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	user.PasswordHash = hash
	c.JSON(http.StatusOK, domain.Envelope{Success: true, Message: "Đổi mật khẩu thành công"})
}

func (s *PlatformServer) handleRefresh(c *gin.Context) {
	var req domain.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		decline(c, http.StatusBadRequest, "Dữ liệu không hợp lệ")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	phone, ok := s.refresh[req.RefreshToken]
	if !ok {
		decline(c, http.StatusUnauthorized, "Phiên đăng nhập đã hết hạn")
		return
	}
	// Rotation: the presented token is single use
	delete(s.refresh, req.RefreshToken)
	c.JSON(http.StatusOK, domain.Envelope{Success: true, Data: s.issueTokens(s.users[phone])})
}

func (s *PlatformServer) handleLogout(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.authenticate(c)
	if user == nil {
		decline(c, http.StatusUnauthorized, "Chưa đăng nhập")
		return
	}
	for token, phone := range s.refresh {
		if phone == user.Phone {
			delete(s.refresh, token)
		}
	}
	c.JSON(http.StatusOK, domain.Envelope{Success: true})
}

func (s *PlatformServer) handleProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.authenticate(c)
	if user == nil {
		decline(c, http.StatusUnauthorized, "Chưa đăng nhập")
		return
	}
	c.JSON(http.StatusOK, domain.Envelope{Success: true, Data: &domain.AuthPayload{User: profileOf(user)}})
}

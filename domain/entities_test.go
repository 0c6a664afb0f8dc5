package domain

import (
	"testing"
	"time"
)

func TestSession_IsAuthenticated(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{
			name: "both tokens present and unexpired",
			session: Session{
				AccessToken:  "A",
				RefreshToken: "R",
				ExpiresAt:    now.Add(10 * time.Minute),
			},
			want: true,
		},
		{
			name: "only access token",
			session: Session{
				AccessToken: "A",
				ExpiresAt:   now.Add(10 * time.Minute),
			},
			want: false,
		},
		{
			name: "only refresh token",
			session: Session{
				RefreshToken: "R",
				ExpiresAt:    now.Add(10 * time.Minute),
			},
			want: false,
		},
		{
			name: "both tokens expired",
			session: Session{
				AccessToken:  "A",
				RefreshToken: "R",
				ExpiresAt:    now.Add(-time.Minute),
			},
			want: false,
		},
		{
			name: "expiry exactly now",
			session: Session{
				AccessToken:  "A",
				RefreshToken: "R",
				ExpiresAt:    now,
			},
			want: false,
		},
		{
			name: "both tokens without tracked expiry",
			session: Session{
				AccessToken:  "A",
				RefreshToken: "R",
			},
			want: true,
		},
		{
			name:    "empty session",
			session: Session{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsAuthenticated(now); got != tt.want {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenRecord_Complete(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		record *TokenRecord
		want   bool
	}{
		{"full tuple", &TokenRecord{AccessToken: "A", RefreshToken: "R", ExpiresAt: exp}, true},
		{"missing refresh token", &TokenRecord{AccessToken: "A", ExpiresAt: exp}, false},
		{"missing access token", &TokenRecord{RefreshToken: "R", ExpiresAt: exp}, false},
		{"no expiry is still complete", &TokenRecord{AccessToken: "A", RefreshToken: "R"}, true},
		{"nil record", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenRecord_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := &TokenRecord{AccessToken: "A", RefreshToken: "R", ExpiresAt: now.Add(-30 * time.Second)}
	if !rec.Expired(now, 0) {
		t.Error("expected record past expiry to be expired with zero grace")
	}
	if rec.Expired(now, time.Minute) {
		t.Error("expected record within grace window to not be expired")
	}

	noExpiry := &TokenRecord{AccessToken: "A", RefreshToken: "R"}
	if noExpiry.Expired(now, 0) {
		t.Error("expected record without an expiry to never expire locally")
	}

	var nilRec *TokenRecord
	if !nilRec.Expired(now, time.Hour) {
		t.Error("expected nil record to read as expired")
	}
}

func TestUserProfile_HasRole(t *testing.T) {
	u := &UserProfile{Roles: []string{RoleStudent, RoleExpert}}
	if !u.HasRole(RoleStudent) {
		t.Error("expected student role to be present")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("did not expect admin role")
	}
	if u.IsAdmin() {
		t.Error("did not expect IsAdmin")
	}

	var nilUser *UserProfile
	if nilUser.HasRole(RoleAdmin) {
		t.Error("nil profile must not carry roles")
	}
}

func TestUserProfile_Clone(t *testing.T) {
	u := &UserProfile{ID: 1, Phone: "0912345678", Roles: []string{RoleStudent}}
	cp := u.Clone()
	cp.Roles[0] = RoleAdmin
	if u.Roles[0] != RoleStudent {
		t.Error("clone must not alias the original role slice")
	}
}

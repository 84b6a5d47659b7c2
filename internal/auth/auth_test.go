package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/avelis/bookstore/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestService() *Service {
	st := store.New()
	st.Restore(store.SeedBooks(), nil, nil)
	return NewService(st, testSecret, time.Hour)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		expectErr error
	}{
		{
			name:     "Success",
			username: "alice",
			password: "password123",
		},
		{
			name:     "TrimsWhitespace",
			username: "  bob  ",
			password: "  password123  ",
		},
		{
			name:      "ShortUsername",
			username:  "al",
			password:  "password123",
			expectErr: store.ErrValidation,
		},
		{
			name:      "ShortPassword",
			username:  "alice",
			password:  "12",
			expectErr: store.ErrValidation,
		},
		{
			name:      "EmptyUsername",
			username:  "",
			password:  "password123",
			expectErr: store.ErrValidation,
		},
		{
			name:      "WhitespacePassword",
			username:  "alice",
			password:  "   ",
			expectErr: store.ErrValidation,
		},
		{
			name:      "LongPassword",
			username:  "alice",
			password:  strings.Repeat("p", 100),
			expectErr: store.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService()
			user, err := s.Register(tt.username, tt.password)
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Username != strings.TrimSpace(tt.username) {
				t.Errorf("expected username %q, got %q", strings.TrimSpace(tt.username), user.Username)
			}
			// stored hash verifies against the trimmed password
			stored, ok := s.Store.FindUser(user.Username)
			if !ok {
				t.Fatal("user not found after registration")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(strings.TrimSpace(tt.password))); err != nil {
				t.Error("password hash mismatch")
			}
		})
	}
}

func TestService_Register_DuplicateCaseInsensitive(t *testing.T) {
	s := newTestService()

	if _, err := s.Register("ann", "pass1"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := s.Register("ANN", "other"); !errors.Is(err, store.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestService_Login(t *testing.T) {
	s := newTestService()
	if _, err := s.Register("alice", "password123"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	tests := []struct {
		name        string
		username    string
		password    string
		expectError bool
	}{
		{
			name:     "Success",
			username: "alice",
			password: "password123",
		},
		{
			name:     "CaseInsensitiveUsername",
			username: "ALICE",
			password: "password123",
		},
		{
			name:        "WrongPassword",
			username:    "alice",
			password:    "wrongpass",
			expectError: true,
		},
		{
			name:        "NonExistentUser",
			username:    "bob",
			password:    "password123",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := s.Login(tt.username, tt.password)
			if tt.expectError {
				if !errors.Is(err, store.ErrInvalidCredentials) {
					t.Errorf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Username != "alice" {
				t.Errorf("expected canonical username alice, got %q", user.Username)
			}

			// token carries the username claim
			parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			})
			if err != nil {
				t.Fatalf("invalid token: %v", err)
			}
			claims, ok := parsed.Claims.(jwt.MapClaims)
			if !ok || claims["username"] != "alice" {
				t.Error("invalid token claims")
			}

			// login opened a session: the cart is reachable
			if _, err := s.Store.Cart("alice"); err != nil {
				t.Errorf("expected open session after login: %v", err)
			}
		})
	}
}

func TestService_SeedCredentials(t *testing.T) {
	st := store.New()
	st.Restore(store.SeedBooks(), store.SeedUsers(), nil)
	s := NewService(st, testSecret, time.Hour)

	if _, _, err := s.Login("user", "1234"); err != nil {
		t.Errorf("expected default credentials to work: %v", err)
	}
	if _, _, err := s.Login("user", "wrong"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_VerifyToken(t *testing.T) {
	s := newTestService()
	if _, err := s.Register("alice", "password123"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	token, _, err := s.Login("alice", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "alice",
		"role":     "customer",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})
	expiredStr, _ := expired.SignedString([]byte(testSecret))
	wrongKey, _ := expired.SignedString([]byte("wrong-key"))

	tests := []struct {
		name           string
		token          string
		expectUsername string
		expectError    bool
	}{
		{
			name:           "Success",
			token:          token,
			expectUsername: "alice",
		},
		{
			name:        "ExpiredToken",
			token:       expiredStr,
			expectError: true,
		},
		{
			name:        "InvalidSignature",
			token:       wrongKey,
			expectError: true,
		},
		{
			name:        "EmptyToken",
			token:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			username, err := s.VerifyToken(tt.token)
			if tt.expectError {
				if !errors.Is(err, store.ErrNotAuthenticated) {
					t.Errorf("expected ErrNotAuthenticated, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if username != tt.expectUsername {
				t.Errorf("expected username %q, got %q", tt.expectUsername, username)
			}
		})
	}
}

func TestService_Logout(t *testing.T) {
	s := newTestService()
	if _, err := s.Register("alice", "password123"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if _, _, err := s.Login("alice", "password123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	s.Logout("alice")
	if _, err := s.Store.Cart("alice"); !errors.Is(err, store.ErrNotAuthenticated) {
		t.Errorf("expected session gone after logout, got %v", err)
	}

	// logging out twice is harmless
	s.Logout("alice")
}

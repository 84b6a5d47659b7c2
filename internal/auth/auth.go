package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/avelis/bookstore/internal/models"
	"github.com/avelis/bookstore/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service handles registration, login, and session tokens
type Service struct {
	Store    *store.Store
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service
func NewService(st *store.Store, secret string, tokenTTL time.Duration) *Service {
	return &Service{Store: st, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Register creates a new customer account with a hashed password.
// Nothing is stored when validation fails.
func (s *Service) Register(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if len(username) < 3 {
		return models.User{}, fmt.Errorf("%w: username must be at least 3 characters", store.ErrValidation)
	}
	if len(password) < 3 {
		return models.User{}, fmt.Errorf("%w: password must be at least 3 characters", store.ErrValidation)
	}
	if len(password) > 72 {
		// bcrypt input limit
		return models.User{}, fmt.Errorf("%w: password too long (max 72 characters)", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	return s.Store.CreateUser(username, string(hash))
}

// Login verifies credentials, opens a session, and issues a JWT.
// Unknown username and wrong password are indistinguishable to the caller.
func (s *Service) Login(username, password string) (string, models.User, error) {
	user, ok := s.Store.FindUser(username)
	if !ok {
		return "", models.User{}, store.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.User{}, store.ErrInvalidCredentials
	}

	if err := s.Store.BeginSession(user.Username); err != nil {
		return "", models.User{}, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", models.User{}, err
	}
	return signed, user, nil
}

// Logout ends the user's session and discards the cart
func (s *Service) Logout(username string) {
	s.Store.EndSession(username)
}

// VerifyToken extracts the username from a JWT
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", store.ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", store.ErrNotAuthenticated
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", store.ErrNotAuthenticated
	}
	return username, nil
}

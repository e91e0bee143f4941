package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Claims represents the JWT claims for the admin session
type Claims struct {
	Subject string `json:"sub_name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Service handles authentication for the admin endpoints. There is a
// single admin identity whose bcrypt hash lives in the config file.
type Service struct {
	jwtSecret         []byte
	tokenDuration     time.Duration
	adminPasswordHash string
}

// NewService creates a new auth service
func NewService(jwtSecret, adminPasswordHash string, tokenDuration time.Duration) *Service {
	if tokenDuration == 0 {
		tokenDuration = 24 * time.Hour
	}
	return &Service{
		jwtSecret:         []byte(jwtSecret),
		tokenDuration:     tokenDuration,
		adminPasswordHash: adminPasswordHash,
	}
}

// HashPassword creates a bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword compares a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login verifies the admin password and returns a signed token
func (s *Service) Login(password string) (string, error) {
	if s.adminPasswordHash == "" || !CheckPassword(password, s.adminPasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.generateToken()
}

// generateToken creates a JWT for the admin session
func (s *Service) generateToken() (string, error) {
	claims := Claims{
		Subject: "admin",
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Package services – AuthService
//
// AuthService registers accounts and issues HS256 JWTs. Passwords are stored
// as bcrypt hashes. Tokens carry the user id in the subject claim.
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/repo"
)

// Credentials is the register/login payload. Name is only used on register.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"     validate:"max=255"`
}

// Session is returned by Register and Login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// AuthService issues and verifies access tokens.
type AuthService struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
	Now  func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		DB:     db,
		Secret: []byte(secret),
		TTL:    ttl,
		Issuer: "go-job-tracker",
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Register creates an account and returns a session for it.
func (s *AuthService) Register(ctx context.Context, in Credentials) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	name := in.Name
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}
	u, err := repo.CreateUser(ctx, s.DB, &domain.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login verifies credentials and returns a fresh session.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*Session, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Me returns the user a verified token belongs to.
func (s *AuthService) Me(ctx context.Context, userID uint) (*domain.User, error) {
	u, err := repo.GetUserByID(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return u, err
}

// Verify parses token and returns the user id in its subject.
func (s *AuthService) Verify(token string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "verify token"), ErrUnauthorized)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrUnauthorized
	}
	return uint(id), nil
}

func (s *AuthService) issue(u *domain.User) (*Session, error) {
	now := s.now()
	exp := now.Add(s.TTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(u.ID), 10),
		Issuer:    s.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &Session{Token: signed, ExpiresAt: exp, User: u}, nil
}

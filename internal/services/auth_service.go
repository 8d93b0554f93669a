package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 90 * 24 * time.Hour

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type AuthService struct {
	Users     UserStore
	Secret    []byte
	RequestID string
	Now       func() time.Time
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s AuthService) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, "", domain.ValidationError{Field: "email", Msg: "invalid"}
	}
	if len(in.Password) < 6 {
		return models.User{}, "", domain.ValidationError{Field: "password", Msg: "at least 6 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		ID:           uuid.NewString(),
		FirstName:    utils.NormalizeSpace(in.FirstName),
		LastName:     utils.NormalizeSpace(in.LastName),
		Email:        email,
		Phone:        utils.NormalizePhone(in.Phone),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return models.User{}, "", err
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	utils.LogEvent(s.RequestID, "auth", "register", "user "+u.ID+" registered")
	return u, token, nil
}

func (s AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	u, err := s.Users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if domain.IsNotFound(err) {
			return models.User{}, "", domain.UnauthorizedError{Msg: "wrong email or password"}
		}
		return models.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", domain.UnauthorizedError{Msg: "wrong email or password"}
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// IssueToken signs an HS256 token carrying user_id and role.
func (s AuthService) IssueToken(u models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     s.now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token issued by IssueToken.
func (s AuthService) ParseToken(raw string) (domain.RequestContext, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	if role == "" {
		role = domain.RoleUser
	}
	return domain.RequestContext{UserID: userID, Role: role}, nil
}

var errNoSecret = errors.New("jwt secret not configured")

// Validate reports configuration problems at startup.
func (s AuthService) Validate() error {
	if len(s.Secret) == 0 {
		return errNoSecret
	}
	return nil
}

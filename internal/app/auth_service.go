package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"attachke/internal/common"
	"attachke/internal/domain/user"
	"attachke/internal/security"
)

type AuthService struct {
	users  user.Repository
	tokens *security.JWTProvider
	logger *zap.SugaredLogger
}

func NewAuthService(users user.Repository, tokens *security.JWTProvider, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	fields := map[string]string{}
	if !strings.Contains(input.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	if len(input.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if strings.TrimSpace(input.FirstName) == "" {
		fields["firstName"] = "first name is required"
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields["lastName"] = "last name is required"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid registration details", fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to hash password", err)
	}

	created, err := s.users.Create(ctx, user.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PhoneNumber:  strings.TrimSpace(input.PhoneNumber),
		Role:         user.RoleApplicant,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("user registered", "user_id", created.ID)
	return s.issueToken(created)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeUnauthorized, "invalid email or password", nil)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, common.NewError(common.CodeUnauthorized, "invalid email or password", nil)
	}
	return s.issueToken(u)
}

func (s *AuthService) Me(ctx context.Context, userID common.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issueToken(u *user.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(u.ID, string(u.Role))
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: *u}, nil
}

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"attachke/internal/common"
	"attachke/internal/domain/user"
	"attachke/internal/security"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[common.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[common.UUID]*user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.NewError(common.CodeConflict, "email already registered", nil)
		}
	}
	u.ID = common.NewUUID()
	stored := u
	r.users[u.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "user not found", nil)
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "user not found", nil)
}

func (r *fakeUserRepo) CountByRole(ctx context.Context, role user.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	tokens := security.NewJWTProvider("test-secret", time.Hour)
	return NewAuthService(repo, tokens, zap.NewNop().Sugar()), repo
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     "jane@example.com",
		Password:  "correct horse",
		FirstName: "Jane",
		LastName:  "Wanjiku",
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	service, _ := newAuthFixture()
	result, err := service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Token == "" {
		t.Error("no token issued")
	}
	if result.User.Role != user.RoleApplicant {
		t.Errorf("role = %q, want applicant", result.User.Role)
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Errorf("token already expired at %v", result.ExpiresAt)
	}
}

func TestRegisterValidation(t *testing.T) {
	service, _ := newAuthFixture()
	input := validRegistration()
	input.Email = "not-an-email"
	input.Password = "short"
	_, err := service.Register(context.Background(), input)
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var coded *common.Error
	if !errors.As(err, &coded) || coded.Fields["email"] == "" || coded.Fields["password"] == "" {
		t.Errorf("expected field errors for email and password, got %+v", coded)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _ := newAuthFixture()
	if _, err := service.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := service.Register(context.Background(), validRegistration())
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	service, _ := newAuthFixture()
	if _, err := service.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := service.Login(context.Background(), "Jane@Example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Error("no token issued")
	}

	if _, err := service.Login(context.Background(), "jane@example.com", "wrong"); !common.Is(err, common.CodeUnauthorized) {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}
	if _, err := service.Login(context.Background(), "nobody@example.com", "correct horse"); !common.Is(err, common.CodeUnauthorized) {
		t.Errorf("unknown email: expected unauthorized, got %v", err)
	}
}

package user

import (
	"time"

	"attachke/internal/common"
)

type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID           common.UUID `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	PhoneNumber  string      `json:"phone_number,omitempty"`
	Role         Role        `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

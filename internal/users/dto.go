package users

import (
	"time"

	"github.com/angelmondragon/user-management/pkg/db/models"
	"github.com/angelmondragon/user-management/pkg/enums"
	"github.com/samber/lo"
)

// UserDTO is the transport shape of a User record.
type UserDTO struct {
	ID         int64            `json:"id"`
	UserName   string           `json:"userName"`
	FirstName  string           `json:"firstName"`
	LastName   string           `json:"lastName"`
	Email      string           `json:"email"`
	UserStatus enums.UserStatus `json:"userStatus"`
	Department *string          `json:"department"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// CreateUserRequest is the decoded body of a create call. Nothing in it has
// been checked yet.
type CreateUserRequest struct {
	UserName   string  `json:"userName"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	UserStatus string  `json:"userStatus"`
	Department *string `json:"department,omitempty"`
}

// UpdateUserRequest replaces every mutable field of an existing User.
type UpdateUserRequest struct {
	UserName   string  `json:"userName"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	UserStatus string  `json:"userStatus"`
	Department *string `json:"department,omitempty"`
}

// Fields is a validated and trimmed set of mutable User columns. Only
// ValidateCreate and ValidateUpdate produce one.
type Fields struct {
	UserName   string
	FirstName  string
	LastName   string
	Email      string
	Status     enums.UserStatus
	Department *string
}

func (f Fields) toModel() *models.User {
	return &models.User{
		UserName:   f.UserName,
		FirstName:  f.FirstName,
		LastName:   f.LastName,
		Email:      f.Email,
		UserStatus: f.Status,
		Department: f.Department,
	}
}

func (f Fields) columns() map[string]any {
	return map[string]any{
		"user_name":   f.UserName,
		"first_name":  f.FirstName,
		"last_name":   f.LastName,
		"email":       f.Email,
		"user_status": f.Status,
		"department":  f.Department,
	}
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:         u.UserID,
		UserName:   u.UserName,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		UserStatus: u.UserStatus,
		Department: u.Department,
		CreatedAt:  u.CreatedAt.UTC(),
		UpdatedAt:  u.UpdatedAt.UTC(),
	}
}

// FromModels never returns nil so empty lists encode as [].
func FromModels(rows []models.User) []UserDTO {
	return lo.Map(rows, func(row models.User, _ int) UserDTO {
		return *FromModel(&row)
	})
}

package models

import (
	"time"

	"github.com/angelmondragon/user-management/pkg/enums"
)

// User is the managed User record. Timestamps are written by the repository
// so created_at and updated_at share one clock reading on insert.
type User struct {
	UserID     int64            `gorm:"column:user_id;primaryKey;autoIncrement"`
	UserName   string           `gorm:"column:user_name;not null;uniqueIndex"`
	FirstName  string           `gorm:"column:first_name;not null"`
	LastName   string           `gorm:"column:last_name;not null"`
	Email      string           `gorm:"column:email;not null;uniqueIndex"`
	UserStatus enums.UserStatus `gorm:"column:user_status;type:varchar(1);not null"`
	Department *string          `gorm:"column:department"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime:false;not null"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime:false;not null"`
}

func (User) TableName() string { return "users" }

// Unique column names of the users table.
const (
	ColumnUserName = "user_name"
	ColumnEmail    = "email"
)

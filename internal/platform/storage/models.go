package storage

import (
	"time"

	"gorm.io/datatypes"
)

// User status values.
const (
	UserStatusDisabled uint = 0
	UserStatusActive   uint = 1
)

// User is a dashboard account.
type User struct {
	ID           uint      `gorm:"primaryKey"                             json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:varchar(255)"                      json:"name"`
	Role         string    `gorm:"type:varchar(32);default:'user'"        json:"role"` // admin/user/viewer
	PasswordHash string    `gorm:"not null"                               json:"-"`
	Status       uint      `gorm:"default:1"                              json:"status"` // 1=active, 0=disabled
	CreatedAt    time.Time `                                              json:"createdAt"`
	UpdatedAt    time.Time `                                              json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// LoginRecord holds the single authoritative login of a user. LoginTimeMs
// is unix milliseconds so comparisons are exact across drivers.
type LoginRecord struct {
	UserID       uint      `gorm:"primaryKey;autoIncrement:false"`
	SessionToken string    `gorm:"type:varchar(64);not null"`
	LoginTimeMs  int64     `gorm:"not null"`
	UpdatedAt    time.Time
}

func (LoginRecord) TableName() string {
	return "login_records"
}

// ActivityLog is the persisted form of an activity entry.
type ActivityLog struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    *uint          `gorm:"index"`
	Agent     string         `gorm:"type:varchar(128);index;not null"`
	Action    string         `gorm:"type:varchar(255);not null"`
	Details   string         `gorm:"type:text;not null"`
	Level     string         `gorm:"type:varchar(16);index;not null;default:'info'"`
	Metadata  datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

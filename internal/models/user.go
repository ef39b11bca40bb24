package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"` // Never expose password hash in JSON
	DisplayName  string         `gorm:"type:varchar(100)" json:"displayName"`
	IsPrivate    bool           `gorm:"not null;default:false" json:"isPrivate"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	FollowerID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"followerId"`
	FollowingID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

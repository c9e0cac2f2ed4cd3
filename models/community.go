package models

import "time"

// Community groups posts under a topic. Managed exclusively by admins.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Slug        string    `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:1024" json:"description"`
	ImageURL    string    `gorm:"size:512" json:"image_url"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	PostCount int64 `gorm:"->;-:migration" json:"post_count"`
}

package models

import (
	"fmt"
	"strconv"
	"time"
)

// Recognized site setting keys. Writes to any other key are rejected so a
// typo never lands silently in the table.
const (
	SettingSiteName          = "site_name"
	SettingSiteDescription   = "site_description"
	SettingAllowRegistration = "allow_registration"
	SettingPostsPerPage      = "posts_per_page"
)

// KnownSettingKey reports whether key belongs to the recognized set.
func KnownSettingKey(key string) bool {
	switch key {
	case SettingSiteName, SettingSiteDescription, SettingAllowRegistration, SettingPostsPerPage:
		return true
	}
	return false
}

// ValidateSettingValue checks that a value fits the key's expected type.
// Values are stored as strings regardless.
func ValidateSettingValue(key, value string) error {
	switch key {
	case SettingAllowRegistration:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be a boolean", key)
		}
	case SettingPostsPerPage:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
	}
	return nil
}

// SiteSetting is a key to value mapping with upsert-on-write semantics.
type SiteSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:64;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"size:1024;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import "gorm.io/gorm"

// NotificationPreference is created lazily with defaults on first use.
type NotificationPreference struct {
	gorm.Model
	UserID           uint `json:"user_id" gorm:"uniqueIndex;not null"`
	EmailEnabled     bool `json:"email_enabled" gorm:"default:true"`
	GraduationEmails bool `json:"graduation_emails" gorm:"default:true"`
	ProgressEmails   bool `json:"progress_emails" gorm:"default:false"`
}

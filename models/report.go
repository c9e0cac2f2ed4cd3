package models

import "time"

// Report statuses. A report only moves from pending to resolved or dismissed.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// ValidReportTransition reports whether status is an allowed target state.
func ValidReportTransition(status string) bool {
	return status == ReportResolved || status == ReportDismissed
}

// Report is a user complaint about a post, processed by admins.
type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"index;not null" json:"post_id"`
	ReporterID uint      `gorm:"index;not null" json:"reporter_id"`
	Reason     string    `gorm:"size:255;not null" json:"reason"`
	Detail     string    `gorm:"size:1024" json:"detail"`
	Status     string    `gorm:"size:16;not null;default:'pending';index" json:"status"`
	AdminNote  string    `gorm:"size:1024" json:"admin_note"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Post       Post      `json:"post"`
	Reporter   User      `gorm:"foreignKey:ReporterID" json:"reporter"`
}

package models

import "time"

// Free trial request statuses.
const (
	FreeTrialPending   = "pending"
	FreeTrialContacted = "contacted"
	FreeTrialCompleted = "completed"
	FreeTrialCancelled = "cancelled"
)

// FreeTrialStatuses lists every status an admin may set.
var FreeTrialStatuses = []string{FreeTrialPending, FreeTrialContacted, FreeTrialCompleted, FreeTrialCancelled}

// FreeTrial is a request for a sample issue submitted from the public form.
type FreeTrial struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     string    `gorm:"not null" json:"phone"`
	Address   string    `gorm:"not null" json:"address"`
	Status    string    `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidFreeTrialStatus reports whether status is one of FreeTrialStatuses.
func ValidFreeTrialStatus(status string) bool {
	for _, s := range FreeTrialStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Stats are the admin dashboard totals.
type Stats struct {
	TotalPosts    int64 `json:"total_posts"`
	TotalComments int64 `json:"total_comments"`
	TotalUsers    int64 `json:"total_users"`
	TotalLikes    int64 `json:"total_likes"`
}

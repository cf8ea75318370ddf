package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExamSession is a capacity-limited slot students book into. BookingCount is
// denormalized and must equal the number of non-cancelled bookings referencing
// the session; the reconciliation job recomputes it.
type ExamSession struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExternalID   string    `json:"external_id" gorm:"size:128;uniqueIndex"`
	ExamType     string    `json:"exam_type" gorm:"size:32;not null;index"`
	Date         string    `json:"date" gorm:"size:10;not null;index"`
	StartTime    string    `json:"start_time" gorm:"size:5"`
	EndTime      string    `json:"end_time" gorm:"size:5"`
	Location     string    `json:"location" gorm:"size:128"`
	Capacity     int       `json:"capacity" gorm:"not null;check:capacity >= 0"`
	BookingCount int       `json:"booking_count" gorm:"not null;default:0"`
	Active       bool      `json:"active" gorm:"not null;default:true;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ExamSession) TableName() string { return "exam_sessions" }

func (s *ExamSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// InPast reports whether the session date is strictly before today (UTC).
func (s *ExamSession) InPast(now time.Time) bool {
	return s.Date < now.UTC().Format("2006-01-02")
}

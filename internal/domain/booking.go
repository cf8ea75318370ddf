package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingFailed    BookingStatus = "failed"
)

// Booking is a reserved seat in an exam session. Rows are never deleted;
// cancellation flips the status and the full history stays queryable.
type Booking struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	ExternalID     string        `json:"external_id" gorm:"size:128;index"`
	StudentID      string        `json:"student_id" gorm:"size:64;not null;index:idx_student_date"`
	SessionID      uuid.UUID     `json:"session_id" gorm:"type:uuid;not null;index"`
	ExamType       string        `json:"exam_type" gorm:"size:32;not null"`
	ExamDate       string        `json:"exam_date" gorm:"size:10;not null;index:idx_student_date"`
	Status         BookingStatus `json:"status" gorm:"type:varchar(16);not null;index;check:status IN ('active','cancelled','completed','failed')"`
	CreditField    string        `json:"credit_field" gorm:"size:32;not null"`
	IdempotencyKey string        `json:"idempotency_key" gorm:"size:128;not null;uniqueIndex"`
	ContactRef     string        `json:"contact_ref" gorm:"size:64"`
	CancelReason   string        `json:"cancel_reason,omitempty" gorm:"size:255"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

func (b *Booking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BookingExternalID builds the human-readable composite key mirrored into the
// system of record, e.g. "judgment-ST1042-2026-09-14".
func BookingExternalID(examType, studentID, examDate string) string {
	return fmt.Sprintf("%s-%s-%s", examType, studentID, examDate)
}

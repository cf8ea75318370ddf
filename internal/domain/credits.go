package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Exam types the booking engine knows about.
const (
	ExamTypeJudgment   = "judgment"
	ExamTypeSkills     = "skills"
	ExamTypeMini       = "mini"
	ExamTypeDiscussion = "discussion"
)

// Credit ledger column names. The atomic booking transaction receives one of
// these and performs a guarded single-column decrement on it.
const (
	CreditFieldJudgment   = "judgment_credits"
	CreditFieldSkills     = "skills_credits"
	CreditFieldMini       = "mini_credits"
	CreditFieldDiscussion = "discussion_credits"
	CreditFieldShared     = "shared_credits"
)

// CreditLedger mirrors the per-student credit counters held by the system of
// record. Primed marks that the counters were seeded from a CRM contact read;
// after that the replica row is authoritative and the CRM only receives
// snapshots.
type CreditLedger struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	StudentID         string     `json:"student_id" gorm:"size:64;not null;uniqueIndex"`
	ContactRef        string     `json:"contact_ref" gorm:"size:64"`
	JudgmentCredits   int        `json:"judgment_credits" gorm:"not null;default:0;check:judgment_credits >= 0"`
	SkillsCredits     int        `json:"skills_credits" gorm:"not null;default:0;check:skills_credits >= 0"`
	MiniCredits       int        `json:"mini_credits" gorm:"not null;default:0;check:mini_credits >= 0"`
	DiscussionCredits int        `json:"discussion_credits" gorm:"not null;default:0;check:discussion_credits >= 0"`
	SharedCredits     int        `json:"shared_credits" gorm:"not null;default:0;check:shared_credits >= 0"`
	Primed            bool       `json:"primed" gorm:"not null;default:false"`
	PrimedAt          *time.Time `json:"primed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CreditLedger) TableName() string { return "credit_ledgers" }

func (l *CreditLedger) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// FieldValue returns the counter stored in the named ledger column.
func (l *CreditLedger) FieldValue(field string) int {
	switch field {
	case CreditFieldJudgment:
		return l.JudgmentCredits
	case CreditFieldSkills:
		return l.SkillsCredits
	case CreditFieldMini:
		return l.MiniCredits
	case CreditFieldDiscussion:
		return l.DiscussionCredits
	case CreditFieldShared:
		return l.SharedCredits
	}
	return 0
}

// SpecificField maps an exam type to its dedicated credit column.
func SpecificField(examType string) (string, bool) {
	switch examType {
	case ExamTypeJudgment:
		return CreditFieldJudgment, true
	case ExamTypeSkills:
		return CreditFieldSkills, true
	case ExamTypeMini:
		return CreditFieldMini, true
	case ExamTypeDiscussion:
		return CreditFieldDiscussion, true
	}
	return "", false
}

// SharedEligible reports whether the exam type may fall back to the shared
// credit pool when its specific counter is empty.
func SharedEligible(examType string) bool {
	return examType == ExamTypeJudgment || examType == ExamTypeSkills
}

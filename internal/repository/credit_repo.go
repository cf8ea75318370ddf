package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"examseat/internal/domain"
)

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) GetByStudent(ctx context.Context, studentID string) (*domain.CreditLedger, error) {
	var l domain.CreditLedger
	err := r.db.WithContext(ctx).First(&l, "student_id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Prime inserts a ledger seeded from CRM contact properties. Losing a race to
// a concurrent prime is fine: the committed row wins and is returned.
func (r *CreditRepository) Prime(ctx context.Context, l *domain.CreditLedger) (*domain.CreditLedger, error) {
	now := time.Now().UTC()
	l.Primed = true
	l.PrimedAt = &now
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueConstraintError(err) {
			return r.GetByStudent(ctx, l.StudentID)
		}
		return nil, err
	}
	return l, nil
}

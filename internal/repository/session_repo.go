package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"examseat/internal/domain"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExamSession, error) {
	var s domain.ExamSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]domain.ExamSession, error) {
	var out []domain.ExamSession
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("date ASC, start_time ASC").
		Find(&out).Error
	return out, err
}

// SetBookingCount overwrites the denormalized counter; only the
// reconciliation job calls this, with a count recomputed from bookings.
func (r *SessionRepository) SetBookingCount(ctx context.Context, id uuid.UUID, count int) error {
	return r.db.WithContext(ctx).Model(&domain.ExamSession{}).
		Where("id = ?", id).
		UpdateColumn("booking_count", count).Error
}

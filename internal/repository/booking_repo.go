package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"examseat/internal/domain"
)

var (
	ErrNoCredit       = errors.New("credit counter exhausted")
	ErrSessionClosed  = errors.New("session not found or inactive")
	ErrNotCancellable = errors.New("booking is not in a cancellable state")
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// creditColumns whitelists the ledger columns the atomic transactions may
// touch; the column name is interpolated into SQL and must never come from
// request input directly.
var creditColumns = map[string]bool{
	domain.CreditFieldJudgment:   true,
	domain.CreditFieldSkills:     true,
	domain.CreditFieldMini:       true,
	domain.CreditFieldDiscussion: true,
	domain.CreditFieldShared:     true,
}

// CreateAtomic inserts the booking row, decrements the resolved credit column
// and increments the session's booking counter in one transaction. The credit
// decrement is guarded (column > 0) so two concurrent requests for the same
// student cannot both pass a prior balance check with one real credit.
//
// A unique violation on the idempotency key means a retry of an already
// committed attempt: the existing booking is returned with replayed=true and
// no state is mutated.
func (r *BookingRepository) CreateAtomic(ctx context.Context, b *domain.Booking) (booking *domain.Booking, replayed bool, err error) {
	if !creditColumns[b.CreditField] {
		return nil, false, errors.New("unknown credit field: " + b.CreditField)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.CreditLedger{}).
			Where("student_id = ? AND "+b.CreditField+" > 0", b.StudentID).
			UpdateColumn(b.CreditField, gorm.Expr(b.CreditField+" - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoCredit
		}

		if err := tx.Create(b).Error; err != nil {
			return err
		}

		res = tx.Model(&domain.ExamSession{}).
			Where("id = ? AND active = ?", b.SessionID, true).
			UpdateColumn("booking_count", gorm.Expr("booking_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionClosed
		}
		return nil
	})

	if err == nil {
		return b, false, nil
	}
	if isUniqueConstraintError(err) {
		existing, lookupErr := r.GetByIdempotencyKey(ctx, b.IdempotencyKey)
		if lookupErr == nil && existing != nil {
			return existing, true, nil
		}
	}
	return nil, false, err
}

// CancelAtomic flips an active booking to cancelled, restores the credit it
// consumed and decrements the session counter (floored at zero), all in one
// transaction. The status flip is guarded so double-cancels lose the race
// cleanly instead of restoring credit twice.
func (r *BookingRepository) CancelAtomic(ctx context.Context, b *domain.Booking, reason string) error {
	if !creditColumns[b.CreditField] {
		return errors.New("unknown credit field: " + b.CreditField)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", b.ID, domain.BookingActive).
			Updates(map[string]interface{}{
				"status":        domain.BookingCancelled,
				"cancel_reason": reason,
				"cancelled_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotCancellable
		}

		res = tx.Model(&domain.CreditLedger{}).
			Where("student_id = ?", b.StudentID).
			UpdateColumn(b.CreditField, gorm.Expr(b.CreditField+" + 1"))
		if res.Error != nil {
			return res.Error
		}

		// Floored: a zero counter here is drift, left for reconciliation.
		res = tx.Model(&domain.ExamSession{}).
			Where("id = ? AND booking_count > 0", b.SessionID).
			UpdateColumn("booking_count", gorm.Expr("booking_count - 1"))
		return res.Error
	})
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).First(&b, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// HasActiveForStudentDate is the tier-2 duplicate check: any non-cancelled,
// non-failed booking for the (student, date) pair, across the whole history.
func (r *BookingRepository) HasActiveForStudentDate(ctx context.Context, studentID, examDate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("student_id = ? AND exam_date = ? AND status NOT IN ?",
			studentID, examDate,
			[]domain.BookingStatus{domain.BookingCancelled, domain.BookingFailed}).
		Count(&count).Error
	return count > 0, err
}

func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("exam_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, err
}

// CountNonCancelledBySession recomputes a session's true booking count from
// the replica; reconciliation treats this as ground truth.
func (r *BookingRepository) CountNonCancelledBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("session_id = ? AND status NOT IN ?",
			sessionID,
			[]domain.BookingStatus{domain.BookingCancelled, domain.BookingFailed}).
		Count(&count).Error
	return count, err
}

// CompletePastActive transitions active bookings whose exam date has passed
// to completed. Returns the number of rows updated.
func (r *BookingRepository) CompletePastActive(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status = ? AND exam_date < ?", domain.BookingActive, now.UTC().Format("2006-01-02")).
		UpdateColumn("status", domain.BookingCompleted)
	return res.RowsAffected, res.Error
}

func isUniqueConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

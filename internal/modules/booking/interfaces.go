package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"examseat/internal/domain"
)

// BookingRepository is the replica-store surface the engine needs: the two
// atomic procedures plus point lookups.
type BookingRepository interface {
	CreateAtomic(ctx context.Context, b *domain.Booking) (booking *domain.Booking, replayed bool, err error)
	CancelAtomic(ctx context.Context, b *domain.Booking, reason string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	HasActiveForStudentDate(ctx context.Context, studentID, examDate string) (bool, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]domain.Booking, error)
	CompletePastActive(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore couples session reads with capacity accounting.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.ExamSession, error)
	SeatCount(ctx context.Context, sess *domain.ExamSession) (int64, error)
	IncrementSeats(ctx context.Context, sessionID uuid.UUID)
	DecrementSeats(ctx context.Context, sessionID uuid.UUID)
}

// CreditResolver serves ledgers, priming from the CRM on first sight.
type CreditResolver interface {
	GetOrPrime(ctx context.Context, studentID, contactRef string) (*domain.CreditLedger, error)
	Snapshot(ctx context.Context, studentID string) (*domain.CreditLedger, error)
}

// LockManager is the distributed lock surface from internal/lock.
type LockManager interface {
	Acquire(ctx context.Context, name string, maxAttempts int, retryDelay, ttl time.Duration) (string, error)
	Release(ctx context.Context, name, token string) bool
}

// Syncer receives fire-and-forget propagation requests after a committed
// mutation. Implementations must return immediately and never report errors
// back to the request path.
type Syncer interface {
	BookingCreated(b *domain.Booking, sess *domain.ExamSession)
	BookingCancelled(b *domain.Booking, sess *domain.ExamSession)
}

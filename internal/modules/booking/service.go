package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"examseat/internal/cache"
	"examseat/internal/domain"
	"examseat/internal/lock"
	"examseat/internal/modules/credits"
	"examseat/internal/repository"
)

// LockConfig carries the retry budget and TTL for both booking locks.
type LockConfig struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

type Service struct {
	bookings BookingRepository
	sessions SessionStore
	credits  CreditResolver
	dedup    *DuplicateDetector
	locks    LockManager
	syncer   Syncer
	lockCfg  LockConfig

	now func() time.Time
}

func NewService(
	bookings BookingRepository,
	sessions SessionStore,
	creditSvc CreditResolver,
	dedup *DuplicateDetector,
	locks LockManager,
	syncer Syncer,
	lockCfg LockConfig,
) *Service {
	return &Service{
		bookings: bookings,
		sessions: sessions,
		credits:  creditSvc,
		dedup:    dedup,
		locks:    locks,
		syncer:   syncer,
		lockCfg:  lockCfg,
		now:      time.Now,
	}
}

// Create runs the full booking pipeline: idempotency resolution, two-tier
// duplicate detection, lock acquisition in fixed order, capacity check under
// the session lock, credit resolution, the atomic transaction, and finally
// counter/marker updates plus fire-and-forget CRM propagation.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	sessionID, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.Active {
		return nil, ErrSessionNotFound
	}
	if sess.ExamType != req.ExamType || sess.Date != req.ExamDate {
		return nil, ErrValidation
	}
	if sess.InPast(s.now()) {
		return nil, ErrValidation
	}

	idemKey, replay, err := s.resolveIdempotency(ctx, req)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return s.replayResult(ctx, replay)
	}

	if err := s.dedup.FastCheck(ctx, req.StudentID, req.ExamDate); err != nil {
		return nil, err
	}

	// Lock order is fixed globally: (student, date) before session. The
	// deferred releases run in reverse.
	studentLock := cache.StudentDayLockKey(req.StudentID, req.ExamDate)
	studentToken, err := s.acquire(ctx, studentLock)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, studentLock, studentToken)

	sessionLock := cache.SessionLockKey(sess.ID.String())
	sessionToken, err := s.acquire(ctx, sessionLock)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, sessionLock, sessionToken)

	// Durable duplicate check is only trustworthy under the (student, date)
	// lock: concurrent identical requests serialize here.
	if err := s.dedup.DurableCheck(ctx, req.StudentID, req.ExamDate); err != nil {
		return nil, err
	}

	// Capacity evidence is only valid while the session lock is held.
	count, err := s.sessions.SeatCount(ctx, sess)
	if err != nil {
		return nil, err
	}
	if count >= int64(sess.Capacity) {
		return nil, ErrSessionFull
	}

	ledger, err := s.credits.GetOrPrime(ctx, req.StudentID, req.ContactRef)
	if err != nil {
		return nil, err
	}
	deduction, err := credits.Resolve(req.ExamType, ledger)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			return nil, ErrInsufficientCredits
		}
		return nil, ErrValidation
	}

	b := &domain.Booking{
		ExternalID:     domain.BookingExternalID(req.ExamType, req.StudentID, req.ExamDate),
		StudentID:      req.StudentID,
		SessionID:      sess.ID,
		ExamType:       req.ExamType,
		ExamDate:       req.ExamDate,
		Status:         domain.BookingActive,
		CreditField:    deduction.Field,
		IdempotencyKey: idemKey,
		ContactRef:     req.ContactRef,
	}

	created, replayed, err := s.bookings.CreateAtomic(ctx, b)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoCredit):
			return nil, ErrInsufficientCredits
		case errors.Is(err, repository.ErrSessionClosed):
			return nil, ErrSessionNotFound
		default:
			return nil, err
		}
	}
	if replayed {
		return s.replayResult(ctx, created)
	}

	s.sessions.IncrementSeats(ctx, sess.ID)
	s.dedup.MarkActive(ctx, req.StudentID, req.ExamDate, created.ID.String())

	if s.syncer != nil {
		s.syncer.BookingCreated(created, sess)
	}

	return &CreateBookingResult{
		BookingID:        created.ID.String(),
		ExternalID:       created.ExternalID,
		Status:           string(created.Status),
		CreditsRemaining: deduction.NewValue,
	}, nil
}

// Cancel reverses a booking's credit and capacity effects under the same lock
// discipline as Create. The booking row survives with status cancelled.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, requesterID, reason string) (*CancelBookingResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.StudentID != requesterID {
		return nil, ErrAccessDenied
	}
	if b.Status != domain.BookingActive {
		return nil, ErrAlreadyCancelled
	}

	studentLock := cache.StudentDayLockKey(b.StudentID, b.ExamDate)
	studentToken, err := s.acquire(ctx, studentLock)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, studentLock, studentToken)

	sessionLock := cache.SessionLockKey(b.SessionID.String())
	sessionToken, err := s.acquire(ctx, sessionLock)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, sessionLock, sessionToken)

	if err := s.bookings.CancelAtomic(ctx, b, reason); err != nil {
		if errors.Is(err, repository.ErrNotCancellable) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	s.sessions.DecrementSeats(ctx, b.SessionID)
	s.dedup.MarkCancelled(ctx, b.StudentID, b.ExamDate)

	if s.syncer != nil {
		sess, err := s.sessions.Get(ctx, b.SessionID)
		if err != nil || sess == nil {
			log.Printf("cancel_sync_session_missing booking_id=%s err=%v", b.ID, err)
		} else {
			s.syncer.BookingCancelled(b, sess)
		}
	}

	return &CancelBookingResult{Status: string(domain.BookingCancelled), CreditsRestored: 1}, nil
}

// ListMine returns the caller's bookings, auto-completing past active ones
// first so clients never see a stale "active" for an exam already held.
func (s *Service) ListMine(ctx context.Context, studentID string, limit, offset int) ([]domain.Booking, error) {
	if _, err := s.bookings.CompletePastActive(ctx, s.now()); err != nil {
		log.Printf("complete_past_failed student_id=%s err=%v", studentID, err)
	}
	return s.bookings.ListByStudent(ctx, studentID, limit, offset)
}

func (s *Service) validateCreate(req CreateBookingRequest) (uuid.UUID, error) {
	if strings.TrimSpace(req.StudentID) == "" {
		return uuid.Nil, ErrValidation
	}
	if _, ok := domain.SpecificField(req.ExamType); !ok {
		return uuid.Nil, ErrValidation
	}
	day, err := time.ParseInLocation("2006-01-02", req.ExamDate, time.UTC)
	if err != nil {
		return uuid.Nil, ErrValidation
	}
	if day.Format("2006-01-02") < s.now().UTC().Format("2006-01-02") {
		return uuid.Nil, ErrValidation
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return uuid.Nil, ErrValidation
	}
	return sessionID, nil
}

// resolveIdempotency returns the key to book under, or the prior booking when
// the request is a replay of a still-live attempt. Keys pointing at cancelled
// or failed bookings are bumped to the next generation so the slot can be
// rebooked.
func (s *Service) resolveIdempotency(ctx context.Context, req CreateBookingRequest) (string, *domain.Booking, error) {
	clientKey := strings.TrimSpace(req.IdempotencyKey)
	bucket := s.now()

	key := clientKey
	if key == "" {
		key = deriveIdempotencyKey(req.StudentID, req.SessionID, req.ExamType, req.ExamDate, bucket, 0)
	}

	for gen := 1; gen <= maxKeyGenerations; gen++ {
		prior, err := s.bookings.GetByIdempotencyKey(ctx, key)
		if err != nil {
			return "", nil, err
		}
		if prior == nil {
			return key, nil, nil
		}

		switch prior.Status {
		case domain.BookingActive, domain.BookingCompleted:
			return key, prior, nil
		case domain.BookingCancelled, domain.BookingFailed:
			if clientKey != "" {
				key = bumpClientKey(clientKey, gen)
			} else {
				key = deriveIdempotencyKey(req.StudentID, req.SessionID, req.ExamType, req.ExamDate, bucket, gen)
			}
		}
	}

	return "", nil, errors.New("idempotency key generations exhausted")
}

// replayResult rebuilds the original response for an idempotent replay; the
// ledger and counters were mutated exactly once, by the first attempt.
func (s *Service) replayResult(ctx context.Context, b *domain.Booking) (*CreateBookingResult, error) {
	remaining := 0
	if ledger, err := s.credits.Snapshot(ctx, b.StudentID); err == nil && ledger != nil {
		remaining = ledger.FieldValue(b.CreditField)
	}
	return &CreateBookingResult{
		BookingID:        b.ID.String(),
		ExternalID:       b.ExternalID,
		Status:           string(b.Status),
		CreditsRemaining: remaining,
		Idempotent:       true,
	}, nil
}

func (s *Service) acquire(ctx context.Context, name string) (string, error) {
	token, err := s.locks.Acquire(ctx, name, s.lockCfg.Retries, s.lockCfg.RetryDelay, s.lockCfg.TTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return "", ErrLockBusy
		}
		return "", err
	}
	return token, nil
}

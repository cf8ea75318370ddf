package session

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"examseat/internal/cache"
	"examseat/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExamSession, error)
	ListActive(ctx context.Context) ([]domain.ExamSession, error)
}

// Service serves the session catalog and owns capacity accounting: a per
// session integer counter in the cache/lock service, seeded lazily from the
// replica's denormalized count. The counter is a performance view, not truth;
// it clamps at zero and the reconciliation job rewrites it from the replica.
type Service struct {
	sessions Repository
	store    cache.Store
}

func NewService(sessions Repository, store cache.Store) *Service {
	return &Service{sessions: sessions, store: store}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ExamSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// SeatCount returns the real-time booking count for the session, seeding the
// counter from the replica on first read. Only a count read after the session
// lock is held is valid evidence for a capacity decision.
func (s *Service) SeatCount(ctx context.Context, sess *domain.ExamSession) (int64, error) {
	key := cache.SessionSeatsKey(sess.ID.String())

	raw, err := s.store.Get(ctx, key)
	if err == nil {
		return parseCount(key, raw), nil
	}
	if err != cache.ErrMiss {
		return 0, err
	}

	seed := int64(sess.BookingCount)
	if seed < 0 {
		seed = 0
	}
	set, err := s.store.SetNX(ctx, key, strconv.FormatInt(seed, 10), 0)
	if err != nil {
		return 0, err
	}
	if set {
		return seed, nil
	}

	// Lost the seeding race; the committed value wins.
	raw, err = s.store.Get(ctx, key)
	if err != nil {
		if err == cache.ErrMiss {
			return seed, nil
		}
		return 0, err
	}
	return parseCount(key, raw), nil
}

// IncrementSeats bumps the counter after a booking commits. The create flow
// has already seeded the key via SeatCount under the session lock.
func (s *Service) IncrementSeats(ctx context.Context, sessionID uuid.UUID) {
	if _, err := s.store.Incr(ctx, cache.SessionSeatsKey(sessionID.String())); err != nil {
		log.Printf("capacity_incr_failed session_id=%s err=%v", sessionID, err)
	}
}

// DecrementSeats lowers the counter after a cancellation, clamping at zero. A
// negative result means drift; it is clamped, logged and left for the
// reconciliation job, never served as negative availability.
func (s *Service) DecrementSeats(ctx context.Context, sessionID uuid.UUID) {
	key := cache.SessionSeatsKey(sessionID.String())
	n, err := s.store.Decr(ctx, key)
	if err != nil {
		log.Printf("capacity_decr_failed session_id=%s err=%v", sessionID, err)
		return
	}
	if n < 0 {
		log.Printf("capacity_drift_clamped session_id=%s count=%d", sessionID, n)
		if err := s.store.Set(ctx, key, "0", 0); err != nil {
			log.Printf("capacity_clamp_failed session_id=%s err=%v", sessionID, err)
		}
	}
}

// SetSeats overwrites the counter with a recomputed ground-truth value.
func (s *Service) SetSeats(ctx context.Context, sessionID uuid.UUID, count int64) error {
	return s.store.Set(ctx, cache.SessionSeatsKey(sessionID.String()), strconv.FormatInt(count, 10), 0)
}

// Availability is one catalog row with the remaining-seat view.
type Availability struct {
	Session        domain.ExamSession `json:"session"`
	BookedSeats    int64              `json:"booked_seats"`
	RemainingSeats int64              `json:"remaining_seats"`
}

// ListAvailability returns active, future sessions with remaining seats from
// the capacity counters.
func (s *Service) ListAvailability(ctx context.Context, now time.Time) ([]Availability, error) {
	sessions, err := s.sessions.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Availability, 0, len(sessions))
	for i := range sessions {
		sess := sessions[i]
		if sess.InPast(now) {
			continue
		}
		count, err := s.SeatCount(ctx, &sess)
		if err != nil {
			// Fall back to the replica's denormalized count.
			log.Printf("capacity_read_failed session_id=%s err=%v", sess.ID, err)
			count = int64(sess.BookingCount)
		}
		remaining := int64(sess.Capacity) - count
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, Availability{Session: sess, BookedSeats: count, RemainingSeats: remaining})
	}
	return out, nil
}

func parseCount(key, raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("capacity_counter_corrupt key=%s value=%q", key, raw)
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

package sync

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"examseat/internal/domain"
)

type SessionLister interface {
	ListActive(ctx context.Context) ([]domain.ExamSession, error)
	SetBookingCount(ctx context.Context, id uuid.UUID, count int) error
}

type BookingGroundTruth interface {
	CountNonCancelledBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
	CompletePastActive(ctx context.Context, now time.Time) (int64, error)
}

type SeatWriter interface {
	SetSeats(ctx context.Context, sessionID uuid.UUID, count int64) error
}

// Reconciler periodically recomputes each session's true booking count from
// the replica and rewrites the denormalized column, the cache counter and the
// system of record, bounding how long any drift can live.
type Reconciler struct {
	sessions SessionLister
	bookings BookingGroundTruth
	seats    SeatWriter
	pusher   *Pusher

	now func() time.Time
}

func NewReconciler(sessions SessionLister, bookings BookingGroundTruth, seats SeatWriter, pusher *Pusher) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		bookings: bookings,
		seats:    seats,
		pusher:   pusher,
		now:      time.Now,
	}
}

// Run executes one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) error {
	start := time.Now()

	completed, err := r.bookings.CompletePastActive(ctx, r.now())
	if err != nil {
		log.Printf("reconcile_complete_past_failed err=%v", err)
	} else if completed > 0 {
		log.Printf("reconcile_completed_past bookings=%d", completed)
	}

	sessions, err := r.sessions.ListActive(ctx)
	if err != nil {
		return err
	}

	var drifted int
	for i := range sessions {
		sess := sessions[i]
		truth, err := r.bookings.CountNonCancelledBySession(ctx, sess.ID)
		if err != nil {
			log.Printf("reconcile_count_failed session_id=%s err=%v", sess.ID, err)
			continue
		}

		if int(truth) != sess.BookingCount {
			drifted++
			log.Printf("reconcile_drift session_id=%s stored=%d true=%d", sess.ID, sess.BookingCount, truth)
			if err := r.sessions.SetBookingCount(ctx, sess.ID, int(truth)); err != nil {
				log.Printf("reconcile_store_fix_failed session_id=%s err=%v", sess.ID, err)
			}
		}

		// The cache counter is rewritten unconditionally: it may have drifted
		// on its own (eviction, clamped decrement) without the replica's
		// denormalized count being wrong.
		if err := r.seats.SetSeats(ctx, sess.ID, truth); err != nil {
			log.Printf("reconcile_cache_fix_failed session_id=%s err=%v", sess.ID, err)
		}

		if r.pusher != nil {
			sess.BookingCount = int(truth)
			r.pusher.PushSessionCount(&sess, truth)
		}
	}

	log.Printf("reconcile_done sessions=%d drifted=%d took=%v", len(sessions), drifted, time.Since(start))
	return nil
}

// Schedule runs passes on a fixed interval until the returned channel is
// closed or ctx ends.
func (r *Reconciler) Schedule(ctx context.Context, interval time.Duration) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Run(ctx); err != nil {
					log.Printf("reconcile_run_failed err=%v", err)
				}
			case <-stopCh:
				log.Println("reconciliation stopped")
				return
			case <-ctx.Done():
				log.Println("reconciliation stopped (context done)")
				return
			}
		}
	}()

	log.Printf("reconciliation scheduled interval=%v", interval)
	return stopCh
}

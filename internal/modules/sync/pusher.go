package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"examseat/internal/crm"
	"examseat/internal/domain"
)

// RecordWriter is the system-of-record surface the pusher writes through.
// *crm.Client satisfies it; every call is already throttled by its queue.
type RecordWriter interface {
	CreateBookingRecord(ctx context.Context, rec crm.BookingRecord) error
	PatchProperties(ctx context.Context, objectType, externalID string, props map[string]interface{}) error
}

type BookingCounter interface {
	CountNonCancelledBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type LedgerReader interface {
	GetByStudent(ctx context.Context, studentID string) (*domain.CreditLedger, error)
}

// Pusher mirrors committed state into the system of record. Every push is
// fire-and-forget: it runs on its own goroutine, retries with exponential
// backoff up to maxAttempts, then gives up with a log line. The scheduled
// reconciliation job repairs whatever a given-up push left behind.
type Pusher struct {
	crm      RecordWriter
	bookings BookingCounter
	ledgers  LedgerReader

	maxAttempts int
	baseDelay   time.Duration

	wg gosync.WaitGroup
}

func NewPusher(writer RecordWriter, bookings BookingCounter, ledgers LedgerReader, maxAttempts int, baseDelay time.Duration) *Pusher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pusher{
		crm:         writer,
		bookings:    bookings,
		ledgers:     ledgers,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// BookingCreated mirrors the new booking record, the session's fresh count
// and the student's ledger snapshot. Returns immediately.
func (p *Pusher) BookingCreated(b *domain.Booking, sess *domain.ExamSession) {
	rec := crm.BookingRecord{
		ExternalID: b.ExternalID,
		ContactRef: b.ContactRef,
		SessionRef: sess.ExternalID,
		ExamType:   b.ExamType,
		ExamDate:   b.ExamDate,
		Status:     string(b.Status),
	}
	p.spawn("booking_record", func(ctx context.Context) error {
		return p.crm.CreateBookingRecord(ctx, rec)
	})
	p.pushSessionCount(sess)
	p.pushLedger(b.StudentID)
}

// BookingCancelled mirrors the status flip plus the reversed count/ledger.
func (p *Pusher) BookingCancelled(b *domain.Booking, sess *domain.ExamSession) {
	externalID := b.ExternalID
	p.spawn("booking_status", func(ctx context.Context) error {
		return p.crm.PatchProperties(ctx, crm.ObjectBookings, externalID, map[string]interface{}{
			"status": string(domain.BookingCancelled),
		})
	})
	p.pushSessionCount(sess)
	p.pushLedger(b.StudentID)
}

// PushSessionCount mirrors a session's current count; the reconciliation job
// uses it directly after recomputing ground truth.
func (p *Pusher) PushSessionCount(sess *domain.ExamSession, count int64) {
	externalID := sess.ExternalID
	p.spawn("session_count", func(ctx context.Context) error {
		return p.crm.PatchProperties(ctx, crm.ObjectSessions, externalID, map[string]interface{}{
			"booking_count": count,
		})
	})
}

func (p *Pusher) pushSessionCount(sess *domain.ExamSession) {
	sessionID := sess.ID
	externalID := sess.ExternalID
	p.spawn("session_count", func(ctx context.Context) error {
		count, err := p.bookings.CountNonCancelledBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		return p.crm.PatchProperties(ctx, crm.ObjectSessions, externalID, map[string]interface{}{
			"booking_count": count,
		})
	})
}

func (p *Pusher) pushLedger(studentID string) {
	p.spawn("credit_ledger", func(ctx context.Context) error {
		ledger, err := p.ledgers.GetByStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if ledger == nil || ledger.ContactRef == "" {
			return nil // nothing to mirror yet
		}
		return p.crm.PatchProperties(ctx, crm.ObjectContacts, ledger.ContactRef, map[string]interface{}{
			"judgment_credits":   ledger.JudgmentCredits,
			"skills_credits":     ledger.SkillsCredits,
			"mini_credits":       ledger.MiniCredits,
			"discussion_credits": ledger.DiscussionCredits,
			"shared_credits":     ledger.SharedCredits,
		})
	})
}

func (p *Pusher) spawn(label string, fn func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		delay := p.baseDelay
		for attempt := 1; attempt <= p.maxAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := fn(ctx)
			cancel()
			if err == nil {
				return
			}
			if attempt == p.maxAttempts {
				log.Printf("sync_push_abandoned kind=%s attempts=%d err=%v", label, attempt, err)
				return
			}
			log.Printf("sync_push_retry kind=%s attempt=%d err=%v", label, attempt, err)
			time.Sleep(delay)
			delay *= 2
		}
	}()
}

// Wait blocks until all in-flight pushes finish; used by tests and shutdown.
func (p *Pusher) Wait() {
	p.wg.Wait()
}

package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"examseat/internal/crm"
	"examseat/internal/domain"
)

type fakeWriter struct {
	mu         gosync.Mutex
	failFirst  int
	records    []crm.BookingRecord
	patches    []string // objectType/externalID
	patchProps []map[string]interface{}
	callCount  int
}

func (f *fakeWriter) CreateBookingRecord(_ context.Context, rec crm.BookingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callCount <= f.failFirst {
		return errors.New("crm unavailable")
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeWriter) PatchProperties(_ context.Context, objectType, externalID string, props map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callCount <= f.failFirst {
		return errors.New("crm unavailable")
	}
	f.patches = append(f.patches, objectType+"/"+externalID)
	f.patchProps = append(f.patchProps, props)
	return nil
}

type fakeCounter struct{ count int64 }

func (f *fakeCounter) CountNonCancelledBySession(context.Context, uuid.UUID) (int64, error) {
	return f.count, nil
}

type fakeLedgers struct{ ledger *domain.CreditLedger }

func (f *fakeLedgers) GetByStudent(context.Context, string) (*domain.CreditLedger, error) {
	return f.ledger, nil
}

func testBookingAndSession() (*domain.Booking, *domain.ExamSession) {
	sess := &domain.ExamSession{ID: uuid.New(), ExternalID: "SESS-1", ExamType: domain.ExamTypeJudgment, Date: "2026-09-14"}
	b := &domain.Booking{
		ID:          uuid.New(),
		ExternalID:  "judgment-ST1-2026-09-14",
		StudentID:   "ST1",
		SessionID:   sess.ID,
		ExamType:    domain.ExamTypeJudgment,
		ExamDate:    "2026-09-14",
		Status:      domain.BookingActive,
		ContactRef:  "C-1",
		CreditField: domain.CreditFieldJudgment,
	}
	return b, sess
}

func TestBookingCreatedPushesRecordCountAndLedger(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPusher(writer, &fakeCounter{count: 4}, &fakeLedgers{ledger: &domain.CreditLedger{
		StudentID: "ST1", ContactRef: "C-1", JudgmentCredits: 1,
	}}, 3, time.Millisecond)

	b, sess := testBookingAndSession()
	p.BookingCreated(b, sess)
	p.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()

	if len(writer.records) != 1 {
		t.Fatalf("expected 1 booking record, got %d", len(writer.records))
	}
	if writer.records[0].ExternalID != b.ExternalID {
		t.Fatalf("record keyed by %q, want %q", writer.records[0].ExternalID, b.ExternalID)
	}

	var sessionPatched, contactPatched bool
	for _, patch := range writer.patches {
		switch patch {
		case crm.ObjectSessions + "/SESS-1":
			sessionPatched = true
		case crm.ObjectContacts + "/C-1":
			contactPatched = true
		}
	}
	if !sessionPatched {
		t.Fatal("session count was not pushed")
	}
	if !contactPatched {
		t.Fatal("credit ledger snapshot was not pushed")
	}
}

func TestPushRetriesThenSucceeds(t *testing.T) {
	writer := &fakeWriter{failFirst: 2}
	p := NewPusher(writer, &fakeCounter{}, &fakeLedgers{}, 5, time.Millisecond)

	sess := &domain.ExamSession{ID: uuid.New(), ExternalID: "SESS-2"}
	p.PushSessionCount(sess, 7)
	p.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.patches) != 1 {
		t.Fatalf("expected push to succeed after retries, got %d patches", len(writer.patches))
	}
	if got := writer.patchProps[0]["booking_count"]; got != int64(7) {
		t.Fatalf("expected booking_count 7, got %v", got)
	}
}

func TestPushAbandonsAfterMaxAttempts(t *testing.T) {
	writer := &fakeWriter{failFirst: 100}
	p := NewPusher(writer, &fakeCounter{}, &fakeLedgers{}, 3, time.Millisecond)

	sess := &domain.ExamSession{ID: uuid.New(), ExternalID: "SESS-3"}
	p.PushSessionCount(sess, 1)
	p.Wait() // must return: the push gives up instead of retrying forever

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.patches) != 0 {
		t.Fatalf("expected no successful patches, got %d", len(writer.patches))
	}
	if writer.callCount != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", writer.callCount)
	}
}

func TestBookingCancelledPatchesStatus(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPusher(writer, &fakeCounter{count: 0}, &fakeLedgers{ledger: &domain.CreditLedger{
		StudentID: "ST1", ContactRef: "C-1",
	}}, 3, time.Millisecond)

	b, sess := testBookingAndSession()
	p.BookingCancelled(b, sess)
	p.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()

	found := false
	for i, patch := range writer.patches {
		if patch == crm.ObjectBookings+"/"+b.ExternalID {
			found = true
			if writer.patchProps[i]["status"] != string(domain.BookingCancelled) {
				t.Fatalf("expected cancelled status patch, got %v", writer.patchProps[i])
			}
		}
	}
	if !found {
		t.Fatal("booking status patch was not pushed")
	}
}

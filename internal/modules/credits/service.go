package credits

import (
	"context"
	"log"

	"examseat/internal/crm"
	"examseat/internal/domain"
)

type LedgerRepository interface {
	GetByStudent(ctx context.Context, studentID string) (*domain.CreditLedger, error)
	Prime(ctx context.Context, l *domain.CreditLedger) (*domain.CreditLedger, error)
}

type ContactReader interface {
	ReadContact(ctx context.Context, studentID, email string) (*crm.Contact, error)
}

// Service owns the replica copy of student credit ledgers. The CRM is read
// exactly once per student, to seed the ledger; after that the replica row is
// the balance of record and the CRM only receives pushed snapshots.
type Service struct {
	ledgers  LedgerRepository
	contacts ContactReader
}

func NewService(ledgers LedgerRepository, contacts ContactReader) *Service {
	return &Service{ledgers: ledgers, contacts: contacts}
}

// GetOrPrime returns the student's ledger, seeding it from the CRM contact on
// first sight. contactRef may carry the student's email for the contact read.
func (s *Service) GetOrPrime(ctx context.Context, studentID, contactRef string) (*domain.CreditLedger, error) {
	ledger, err := s.ledgers.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		return ledger, nil
	}

	seed := &domain.CreditLedger{StudentID: studentID, ContactRef: contactRef}
	if s.contacts != nil {
		contact, err := s.contacts.ReadContact(ctx, studentID, contactRef)
		if err != nil {
			// An unreachable CRM must not take bookings down; the student
			// simply starts with empty counters until reconciliation.
			log.Printf("ledger_prime_crm_failed student_id=%s err=%v", studentID, err)
		} else if contact != nil {
			seed.ContactRef = contact.ID
			seed.JudgmentCredits = contact.JudgmentCredits
			seed.SkillsCredits = contact.SkillsCredits
			seed.MiniCredits = contact.MiniCredits
			seed.DiscussionCredits = contact.DiscussionCredits
			seed.SharedCredits = contact.SharedCredits
		}
	}

	return s.ledgers.Prime(ctx, seed)
}

// Snapshot returns the current ledger without priming; nil if unknown.
func (s *Service) Snapshot(ctx context.Context, studentID string) (*domain.CreditLedger, error) {
	return s.ledgers.GetByStudent(ctx, studentID)
}

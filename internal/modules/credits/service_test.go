package credits

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"examseat/internal/crm"
	"examseat/internal/domain"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) GetByStudent(ctx context.Context, studentID string) (*domain.CreditLedger, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditLedger), args.Error(1)
}

func (m *MockLedgerRepository) Prime(ctx context.Context, l *domain.CreditLedger) (*domain.CreditLedger, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditLedger), args.Error(1)
}

type MockContactReader struct {
	mock.Mock
}

func (m *MockContactReader) ReadContact(ctx context.Context, studentID, email string) (*crm.Contact, error) {
	args := m.Called(ctx, studentID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Contact), args.Error(1)
}

func TestGetOrPrimeReturnsExistingWithoutCRMRead(t *testing.T) {
	ledgers := new(MockLedgerRepository)
	contacts := new(MockContactReader)
	svc := NewService(ledgers, contacts)

	existing := &domain.CreditLedger{StudentID: "ST1", JudgmentCredits: 3, Primed: true}
	ledgers.On("GetByStudent", mock.Anything, "ST1").Return(existing, nil)

	got, err := svc.GetOrPrime(context.Background(), "ST1", "st1@example.com")

	assert.NoError(t, err)
	assert.Equal(t, existing, got)
	contacts.AssertNotCalled(t, "ReadContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrPrimeSeedsFromContact(t *testing.T) {
	ledgers := new(MockLedgerRepository)
	contacts := new(MockContactReader)
	svc := NewService(ledgers, contacts)

	ledgers.On("GetByStudent", mock.Anything, "ST2").Return(nil, nil)
	contacts.On("ReadContact", mock.Anything, "ST2", "st2@example.com").Return(&crm.Contact{
		ID:              "C-77",
		JudgmentCredits: 4,
		SharedCredits:   2,
	}, nil)
	ledgers.On("Prime", mock.Anything, mock.MatchedBy(func(l *domain.CreditLedger) bool {
		return l.StudentID == "ST2" && l.JudgmentCredits == 4 && l.SharedCredits == 2 && l.ContactRef == "C-77"
	})).Return(&domain.CreditLedger{StudentID: "ST2", JudgmentCredits: 4, SharedCredits: 2, Primed: true}, nil)

	got, err := svc.GetOrPrime(context.Background(), "ST2", "st2@example.com")

	assert.NoError(t, err)
	assert.True(t, got.Primed)
	assert.Equal(t, 4, got.JudgmentCredits)
	ledgers.AssertExpectations(t)
	contacts.AssertExpectations(t)
}

func TestGetOrPrimeSurvivesCRMOutage(t *testing.T) {
	ledgers := new(MockLedgerRepository)
	contacts := new(MockContactReader)
	svc := NewService(ledgers, contacts)

	ledgers.On("GetByStudent", mock.Anything, "ST3").Return(nil, nil)
	contacts.On("ReadContact", mock.Anything, "ST3", "").Return(nil, errors.New("crm timeout"))
	ledgers.On("Prime", mock.Anything, mock.MatchedBy(func(l *domain.CreditLedger) bool {
		return l.StudentID == "ST3" && l.JudgmentCredits == 0
	})).Return(&domain.CreditLedger{StudentID: "ST3", Primed: true}, nil)

	got, err := svc.GetOrPrime(context.Background(), "ST3", "")

	assert.NoError(t, err)
	assert.Equal(t, "ST3", got.StudentID)
}

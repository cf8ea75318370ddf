package credits

import (
	"errors"

	"examseat/internal/domain"
)

var (
	ErrUnknownExamType     = errors.New("unknown exam type")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Deduction names the single ledger column a booking will consume and the
// balance it will leave behind. Resolving happens before the atomic
// transaction so the transaction itself is a pure guarded write.
type Deduction struct {
	Field    string
	NewValue int
}

// Resolve picks the credit bucket for an exam type: the type-specific counter
// when it has balance, else the shared pool for types eligible to use it.
//
//	judgment    specific, then shared
//	skills      specific, then shared
//	mini        specific only
//	discussion  specific only
func Resolve(examType string, ledger *domain.CreditLedger) (Deduction, error) {
	field, ok := domain.SpecificField(examType)
	if !ok {
		return Deduction{}, ErrUnknownExamType
	}

	if specific := ledger.FieldValue(field); specific > 0 {
		return Deduction{Field: field, NewValue: specific - 1}, nil
	}

	if domain.SharedEligible(examType) {
		if shared := ledger.SharedCredits; shared > 0 {
			return Deduction{Field: domain.CreditFieldShared, NewValue: shared - 1}, nil
		}
	}

	return Deduction{}, ErrInsufficientCredits
}

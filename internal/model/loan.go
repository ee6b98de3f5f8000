package model

import (
	"time"

	"github.com/google/uuid"
)

// Loan is a borrowing transaction linking a Copy to a User for a bounded
// period. Loans are never deleted; a closed loan keeps its return date and
// fine as the audit trail.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CopyID     uuid.UUID  `json:"copy_id" db:"copy_id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Fine       float64    `json:"fine" db:"fine"`
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool { return l.ReturnDate == nil }

// LoanStats aggregates a user's borrowing history.
type LoanStats struct {
	TotalBorrowed     int     `json:"total_borrowed" db:"total_borrowed"`
	CurrentlyBorrowed int     `json:"currently_borrowed" db:"currently_borrowed"`
	TotalFines        float64 `json:"total_fines" db:"total_fines"`
}

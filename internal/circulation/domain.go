// internal/circulation/domain.go
package circulation

import "time"

// Defaults for the lending policy.
const (
	DefaultLoanPeriodDays = 14
	DefaultFinePerDay     = 0.50
)

// Config is the lending policy the service applies. The zero value gets
// the defaults filled in by NewService.
type Config struct {
	LoanPeriodDays int
	FinePerDay     float64

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// AddBookParams carries everything needed to create a catalog entry and
// its physical copies.
type AddBookParams struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	ISBN           string `json:"isbn"`
	Category       int    `json:"category_id"`
	TotalCopies    int    `json:"total_copies"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

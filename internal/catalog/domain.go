// internal/catalog/domain.go
package catalog

import "libris/internal/model"

// UserLoan is a loan projected with its book metadata, the shape the
// "my borrowed books" view consumes. Book fields stay empty when the book
// has since been removed from the catalog; the loan itself is permanent.
type UserLoan struct {
	model.Loan
	BookID     string `json:"book_id,omitempty"`
	BookTitle  string `json:"book_title,omitempty"`
	BookAuthor string `json:"book_author,omitempty"`
}

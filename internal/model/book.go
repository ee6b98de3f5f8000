package model

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a catalog entry.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryFiction
	CategoryNonFiction
	CategoryScienceFiction
	CategoryBiography
)

var categoryNames = map[Category]string{
	CategoryUnknown:        "Unknown",
	CategoryFiction:        "Fiction",
	CategoryNonFiction:     "Non-Fiction",
	CategoryScienceFiction: "Science Fiction",
	CategoryBiography:      "Biography",
}

// String returns the canonical display name for the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnknown]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Book represents a catalog entry. AvailableCopies is computed from copy
// rows on read; copy rows are authoritative, TotalCopies is the declared
// capacity and the two stay equal by construction.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	ISBN            string    `json:"isbn" db:"isbn"`
	Category        Category  `json:"category_id" db:"category_id"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	AttachmentPath  string    `json:"attachment_path,omitempty" db:"attachment_path"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CopyStatus is the lending state of a single physical copy.
type CopyStatus string

const (
	CopyAvailable CopyStatus = "available"
	CopyBorrowed  CopyStatus = "borrowed"
)

// Copy is one physical instance of a Book.
type Copy struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BookID    uuid.UUID  `json:"book_id" db:"book_id"`
	Status    CopyStatus `json:"status" db:"status"`
	Barcode   string     `json:"barcode,omitempty" db:"barcode"`
	Condition string     `json:"condition,omitempty" db:"condition"`
}

// BookFilter narrows ListBooks results. Zero values mean "no constraint".
type BookFilter struct {
	Title         string
	Author        string
	Category      Category
	HasCategory   bool
	AvailableOnly bool
}

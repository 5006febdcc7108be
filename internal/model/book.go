package model

import "time"

// Book represents a catalog entry in the `books` table. A book has a
// total number of owned copies (Quantity) and a live count of copies
// not currently checked out (Available). The invariant
// 0 <= Available <= Quantity holds at all times; both counters are
// only mutated inside borrow/return transactions.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – book title.
//  Author          – author name.
//  ISBN            – unique ISBN string.
//  Category        – free-form category label.
//  PublicationYear – year of publication (0 when unknown).
//  Description     – optional long description.
//  CoverURL        – optional cover image URL.
//  Quantity        – total copies owned by the library.
//  Available       – copies currently on the shelf.
//  AddedBy         – user who created the catalog entry.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Book struct {
	ID              uint64    // books.id
	Title           string    // books.title
	Author          string    // books.author
	ISBN            string    // books.isbn
	Category        string    // books.category
	PublicationYear uint16    // books.publication_year
	Description     string    // books.description
	CoverURL        string    // books.cover_url
	Quantity        uint32    // books.quantity
	Available       uint32    // books.available
	AddedBy         uint64    // books.added_by
	CreatedAt       time.Time // books.created_at
	UpdatedAt       time.Time // books.updated_at
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openshelf/library-api/internal/model"
)

// BookRepo provides data access to the books table. Borrow/return flows
// mutate the `available` counter only through the *Tx methods below while
// holding a row lock, so 0 <= available <= quantity is preserved even when
// two librarians race for the last copy.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span multiple repositories.
func (r *BookRepo) DB() *sql.DB { return r.db }

var (
	ErrBookNotFound = errors.New("book not found")
	ErrISBNExists   = errors.New("isbn already exists")
)

// Create inserts a catalog entry. Available starts equal to Quantity; the
// generated ID is written back to the record.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO books (title, author, isbn, category, publication_year, description, cover_url, quantity, available, added_by)
         VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Author, b.ISBN, b.Category, b.PublicationYear,
		b.Description, b.CoverURL, b.Quantity, b.Quantity, b.AddedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrISBNExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Available = b.Quantity
	return nil
}

const bookCols = `id, title, author, isbn, category, publication_year, description, cover_url, quantity, available, added_by, created_at, updated_at`

func scanBook(scan func(dest ...any) error) (model.Book, error) {
	var b model.Book
	err := scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublicationYear,
		&b.Description, &b.CoverURL, &b.Quantity, &b.Available, &b.AddedBy,
		&b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// GetByID fetches a book by id. Returns ErrBookNotFound when missing.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return b, ErrBookNotFound
	}
	return b, err
}

// GetForUpdateTx loads a book inside a transaction with a row lock. Borrow
// and return flows call this first so counter updates are serialized.
func (r *BookRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Book, error) {
	b, err := scanBook(tx.QueryRowContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id=? FOR UPDATE", id).Scan)
	if err == sql.ErrNoRows {
		return b, ErrBookNotFound
	}
	return b, err
}

// DecrementAvailableTx takes one copy off the shelf. The guard in the
// WHERE clause is a backstop; callers must have checked available > 0
// under the row lock already.
func (r *BookRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE books SET available = available - 1 WHERE id=? AND available > 0", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// IncrementAvailableTx puts one copy back, clamped to quantity.
func (r *BookRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE books SET available = LEAST(available + 1, quantity) WHERE id=?", id)
	return err
}

// Update rewrites a book's metadata and quantity. Changing quantity moves
// `available` by the same delta; shrinking quantity below the number of
// currently borrowed copies is rejected with ErrConflict. Runs in its own
// transaction because the counter adjustment depends on the locked row.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := r.GetForUpdateTx(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	borrowed := cur.Quantity - cur.Available
	if b.Quantity < borrowed {
		return ErrConflict
	}
	newAvailable := b.Quantity - borrowed

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET title=?, author=?, isbn=?, category=?, publication_year=?,
                description=?, cover_url=?, quantity=?, available=? WHERE id=?`,
		b.Title, b.Author, b.ISBN, b.Category, b.PublicationYear,
		b.Description, b.CoverURL, b.Quantity, newAvailable, b.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrISBNExists
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.Available = newAvailable
	return nil
}

// Delete removes a book from the catalog. Books with open borrowings
// cannot be deleted (ErrConflict); history rows keep the book id via
// foreign key, so deletion is restricted to never-borrowed or fully
// returned titles.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	var open int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM borrowings WHERE book_id=? AND returned_at IS NULL", id).Scan(&open)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// BookSearchQuery defines filters & pagination for catalog search.
type BookSearchQuery struct {
	Q             string // substring across title/author/isbn
	Category      string
	Author        string
	OnlyAvailable bool
	Page          int
	PageSize      int
}

// BookRow is a catalog listing row including rating aggregates.
type BookRow struct {
	ID              uint64  `json:"id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            string  `json:"isbn"`
	Category        string  `json:"category"`
	PublicationYear uint16  `json:"publication_year"`
	CoverURL        string  `json:"cover_url,omitempty"`
	Quantity        uint32  `json:"quantity"`
	Available       uint32  `json:"available"`
	AvgRating       float64 `json:"avg_rating"`
	RatingCount     int64   `json:"rating_count"`
}

// Search returns a page of catalog rows plus the total match count. The
// rating aggregates come from a LEFT JOIN on a grouped subquery so books
// without ratings still list with zeros.
func (r *BookRepo) Search(ctx context.Context, q BookSearchQuery) ([]BookRow, int64, error) {
	where := []string{}
	args := []any{}

	if q.Q != "" {
		where = append(where, "(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR b.isbn LIKE ?)")
		needle := "%" + strings.ToLower(q.Q) + "%"
		args = append(args, needle, needle, "%"+q.Q+"%")
	}
	if q.Category != "" {
		where = append(where, "LOWER(b.category) = ?")
		args = append(args, strings.ToLower(q.Category))
	}
	if q.Author != "" {
		where = append(where, "LOWER(b.author) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Author)+"%")
	}
	if q.OnlyAvailable {
		where = append(where, "b.available > 0")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM books b WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
            b.id, b.title, b.author, b.isbn, b.category, b.publication_year,
            b.cover_url, b.quantity, b.available,
            COALESCE(rt.avg_rating, 0), COALESCE(rt.rating_count, 0)
        FROM books b
        LEFT JOIN (
            SELECT book_id, AVG(rating) AS avg_rating, COUNT(*) AS rating_count
            FROM ratings GROUP BY book_id
        ) rt ON rt.book_id = b.id
        WHERE ` + cond + `
        ORDER BY b.title, b.id
        LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]BookRow, 0)
	for rows.Next() {
		var br BookRow
		if err := rows.Scan(&br.ID, &br.Title, &br.Author, &br.ISBN, &br.Category,
			&br.PublicationYear, &br.CoverURL, &br.Quantity, &br.Available,
			&br.AvgRating, &br.RatingCount); err != nil {
			return nil, 0, err
		}
		out = append(out, br)
	}
	return out, total, rows.Err()
}

// BookDetail is the full public view of a single book.
type BookDetail struct {
	BookRow
	Description string `json:"description,omitempty"`
}

// GetDetail loads one book with its rating aggregates.
func (r *BookRepo) GetDetail(ctx context.Context, id uint64) (*BookDetail, error) {
	const q = `SELECT
            b.id, b.title, b.author, b.isbn, b.category, b.publication_year,
            b.cover_url, b.quantity, b.available,
            COALESCE(rt.avg_rating, 0), COALESCE(rt.rating_count, 0),
            b.description
        FROM books b
        LEFT JOIN (
            SELECT book_id, AVG(rating) AS avg_rating, COUNT(*) AS rating_count
            FROM ratings GROUP BY book_id
        ) rt ON rt.book_id = b.id
        WHERE b.id = ?`
	var d BookDetail
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Title, &d.Author, &d.ISBN, &d.Category, &d.PublicationYear,
		&d.CoverURL, &d.Quantity, &d.Available, &d.AvgRating, &d.RatingCount,
		&d.Description)
	if err == sql.ErrNoRows {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Categories returns the distinct category labels in the catalog.
func (r *BookRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM books WHERE category <> '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/utils"
)

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = "id,email,password_hash,full_name,role,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID. The password is hashed here so
// callers never handle bcrypt directly.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role) VALUES (?,?,?,?)",
		email, hash, fullName, role)
	if err != nil {
		// 1062 = MySQL duplicate key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UserListQuery defines filters & pagination for the admin user listing.
type UserListQuery struct {
	Role     string
	Q        string // substring match on email or full name
	Page     int
	PageSize int
}

// List returns a page of users plus the total count matching the filters.
func (r *UserRepo) List(ctx context.Context, q UserListQuery) ([]model.User, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, strings.ToUpper(q.Role))
	}
	if q.Q != "" {
		where = append(where, "(LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?)")
		needle := "%" + strings.ToLower(q.Q) + "%"
		args = append(args, needle, needle)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
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

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+cond+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateRole changes a user's role. The new role takes effect when the
// user next obtains an access token. Callers verify existence first; a
// no-op update (same role) is not an error.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=?", role, id)
	return err
}

// SetActive toggles the account's active flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

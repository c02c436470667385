package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/utils"
)

const mysqlErrDuplicateEntry = 1062 // ER_DUP_ENTRY

// UserRepo provides access to the `users` table. Usernames are
// normalized to lowercase before every read or write so that lookups are
// case-insensitive.
type UserRepo struct {
	DB      *sql.DB
	Retries int // transaction attempts for signup, DefaultRetryAttempts when zero
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB, retries int) *UserRepo {
	return &UserRepo{DB: db, Retries: retries}
}

// Create hashes the password and inserts a new user with the given
// starting balance as one check-then-insert transaction. Two concurrent
// signups with the same name cannot both succeed: the race loser either
// observes the winner's row or trips the primary key, and both paths
// report ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, username, password string, balance int64, cost int) error {
	username = normalizeUsername(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return WithRetry(ctx, r.DB, r.Retries, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
		if err == nil {
			return ErrUsernameExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, balance) VALUES (?, ?, ?)`,
			username, hash, balance)
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
			return ErrUsernameExists
		}
		return err
	})
}

// GetByUsername fetches a user by normalized username. sql.ErrNoRows is
// returned unchanged when the user does not exist.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = normalizeUsername(username)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT username, password_hash, balance, created_at FROM users WHERE username = ? LIMIT 1`,
		username).Scan(&u.Username, &u.PasswordHash, &u.Balance, &u.CreatedAt)
	return u, err
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

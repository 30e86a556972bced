package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/JeandreDegenaar/q1-profiles/internal/domain/user"
	"github.com/JeandreDegenaar/q1-profiles/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, password_hash, email, phone, dob, created_at, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&u.Phone,
		&u.DOB.Time,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.metrics.ObserveDB("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return e
	})
	return
}

// GetByUsername is the login lookup. Username matching is case-sensitive.
func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (u user.User, err error) {
	err = r.metrics.ObserveDB("users.get_by_username", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`,
			username,
		))
		return e
	})
	return
}

// GetByUsernameOrEmail detects signup conflicts on either field.
func (r *UsersRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (u user.User, err error) {
	err = r.metrics.ObserveDB("users.get_by_username_or_email", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2`,
			username, email,
		))
		return e
	})
	return
}

// Create inserts a new record. Uniqueness is enforced by the users table
// constraints so concurrent signups cannot race past the pre-check.
func (r *UsersRepo) Create(ctx context.Context, n user.NewUser) (user.User, error) {
	n.Normalize()

	if err := n.Validate(); err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     n.Username,
		PasswordHash: n.PasswordHash,
		Email:        n.Email,
		Phone:        n.Phone,
		DOB:          n.DOB,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.metrics.ObserveDB("users.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, email, phone, dob, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, u.ID, u.Username, u.PasswordHash, u.Email, u.Phone, u.DOB.Time, u.CreatedAt, u.UpdatedAt)
		return e
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrConflict
		}

		return user.User{}, err
	}

	return u, nil
}

// UpdateByID rewrites the mutable profile fields. The password hash is
// never touched here.
func (r *UsersRepo) UpdateByID(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	upd.Normalize()

	if err := upd.Validate(); err != nil {
		return user.User{}, err
	}

	var u user.User

	err := r.metrics.ObserveDB("users.update_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, phone = $4, dob = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+userColumns,
			id, upd.Username, upd.Email, upd.Phone, upd.DOB.Time, time.Now().UTC(),
		))
		return e
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrConflict
		}

		return user.User{}, err
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Package users stores accounts: sign-up, credentials, and the profile
// fields the order flow depends on.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrNoAddress          = errors.New("user has no delivery address")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidUser        = errors.New("invalid user data")
)

const (
	minPasswordLen  = 8
	uniqueViolation = "23505"
)

// Role values match the role column.
const (
	RoleAdmin    int16 = 1
	RoleCustomer int16 = 2
	RoleDelivery int16 = 3
)

type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Location      string `json:"location,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Role          int16  `json:"role"`
}

// NewUser is a self-service sign-up. Sign-ups are always customers; staff
// roles are granted in the database.
type NewUser struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Location      string `json:"location"`
	ContactNumber string `json:"contact_number"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Location      *string `json:"location"`
	ContactNumber *string `json:"contact_number"`
}

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, name, email, location, contact_number, role`

// Create registers u as a customer with a hashed password.
func (r *Repo) Create(ctx context.Context, u NewUser) (*User, error) {
	email := normalizeEmail(u.Email)
	switch {
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: email is required", ErrInvalidUser)
	case len(u.Password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLen)
	}
	hash, err := HashPassword(u.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := postgres.Q(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO users(name, email, location, contact_number, role, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		RETURNING `+userCols,
		strings.TrimSpace(u.Name), email, strings.TrimSpace(u.Location), strings.TrimSpace(u.ContactNumber),
		RoleCustomer, hash)
	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// Authenticate returns the user whose email and password match. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (r *Repo) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var hash string
	row := postgres.Q(ctx, r.DB).QueryRow(ctx, `
		SELECT `+userCols+`, password_hash FROM users WHERE email=$1`, normalizeEmail(email))
	u, err := scanUser(row, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if !CheckPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateProfile applies the set fields of p. Blank location and contact
// number clear them.
func (r *Repo) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*User, error) {
	var email *string
	if p.Email != nil {
		e := normalizeEmail(*p.Email)
		if !strings.Contains(e, "@") {
			return nil, fmt.Errorf("%w: email is invalid", ErrInvalidUser)
		}
		email = &e
	}
	row := postgres.Q(ctx, r.DB).QueryRow(ctx, `
		UPDATE users SET
			name           = COALESCE($2, name),
			email          = COALESCE($3, email),
			location       = CASE WHEN $4::text IS NULL THEN location ELSE NULLIF(trim($4), '') END,
			contact_number = CASE WHEN $5::text IS NULL THEN contact_number ELSE NULLIF(trim($5), '') END,
			updated_at     = now()
		WHERE id=$1
		RETURNING `+userCols,
		id, trimmed(p.Name), email, p.Location, p.ContactNumber)
	u, err := scanUser(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrUserNotFound
	case isUniqueViolation(err):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(postgres.Q(ctx, r.DB).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return u, nil
}

// AddressOf returns the user's delivery address, or ErrNoAddress when
// none is on file.
func (r *Repo) AddressOf(ctx context.Context, id int64) (string, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(u.Location) == "" {
		return "", ErrNoAddress
	}
	return u.Location, nil
}

// scanUser reads userCols followed by any extra destinations.
func scanUser(row pgx.Row, extra ...any) (*User, error) {
	var (
		u        User
		location *string
		contact  *string
	)
	dest := append([]any{&u.ID, &u.Name, &u.Email, &location, &contact, &u.Role}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if location != nil {
		u.Location = *location
	}
	if contact != nil {
		u.ContactNumber = *contact
	}
	return &u, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

package db

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"HRMSLite/internal/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Account is one row of the sign-in directory. No credentials or tokens
// are kept; those stay with the identity providers.
type Account struct {
	ID          int64
	Provider    string
	Subject     string
	Email       string
	Name        string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	provider      TEXT NOT NULL,
	subject       TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	avatar_url    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (provider, subject)
)`

var schemaReady atomic.Bool

// Conn is the part of *pgx.Conn the directory uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Accounts records sign-ins on a single connection.
type Accounts struct {
	conn Conn
}

func NewAccounts(conn Conn) *Accounts {
	return &Accounts{conn: conn}
}

func (a *Accounts) ensureSchema(ctx context.Context) error {
	if schemaReady.Load() {
		return nil
	}
	if _, err := a.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	schemaReady.Store(true)
	return nil
}

// RecordSignIn creates the account on first sign-in and refreshes profile
// fields and last_login_at afterwards.
func (a *Accounts) RecordSignIn(ctx context.Context, u auth.User) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var acc Account
	err := a.conn.QueryRow(ctx, `
		INSERT INTO accounts (provider, subject, email, name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, subject) DO UPDATE SET
			email         = EXCLUDED.email,
			name          = EXCLUDED.name,
			avatar_url    = EXCLUDED.avatar_url,
			updated_at    = CASE
				WHEN accounts.email      IS DISTINCT FROM EXCLUDED.email
				  OR accounts.name       IS DISTINCT FROM EXCLUDED.name
				  OR accounts.avatar_url IS DISTINCT FROM EXCLUDED.avatar_url
				THEN CURRENT_TIMESTAMP
				ELSE accounts.updated_at
			END,
			last_login_at = CURRENT_TIMESTAMP
		RETURNING id, provider, subject, email, name, avatar_url,
				  created_at, updated_at, last_login_at`,
		u.Provider, u.Subject, u.Email, u.Name, u.AvatarURL,
	).Scan(
		&acc.ID, &acc.Provider, &acc.Subject, &acc.Email, &acc.Name, &acc.AvatarURL,
		&acc.CreatedAt, &acc.UpdatedAt, &acc.LastLoginAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	return &acc, nil
}

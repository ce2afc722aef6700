package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
)

// SQLAccounts is an AccountRepo over the accounts table.
type SQLAccounts struct {
	db      *sql.DB
	dialect string
}

var _ AccountRepo = (*SQLAccounts)(nil)

func (r *SQLAccounts) CreateAccount(ctx context.Context, a *Account) error {
	query, args := entsql.Dialect(r.dialect).Insert(accountsTable).
		Columns("id", "email", "password_hash", "display_name", "provider", "created_at").
		Values(a.ID, strings.ToLower(a.Email), a.PasswordHash, a.DisplayName, a.Provider, a.CreatedAt).
		OnConflict(
			entsql.ConflictColumns("email"),
			entsql.DoNothing(),
		).
		Query()
	ok, err := execAffected(ctx, r.db, query, args)
	if err != nil {
		return Classify("create account", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (r *SQLAccounts) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.lookup(ctx, "email", strings.ToLower(email))
}

func (r *SQLAccounts) AccountByID(ctx context.Context, id string) (*Account, error) {
	return r.lookup(ctx, "id", id)
}

func (r *SQLAccounts) lookup(ctx context.Context, column string, value any) (*Account, error) {
	b := entsql.Dialect(r.dialect)
	query, args := b.Select("id", "email", "password_hash", "display_name", "provider", "created_at").
		From(b.Table(accountsTable)).
		Where(entsql.EQ(column, value)).
		Query()

	var (
		a           Account
		hash, dname sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Email, &hash, &dname, &a.Provider, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, Classify("lookup account", err)
	}
	a.PasswordHash = hash.String
	a.DisplayName = dname.String
	return &a, nil
}

func (r *SQLAccounts) SetDisplayName(ctx context.Context, id, name string) error {
	query, args := entsql.Dialect(r.dialect).Update(accountsTable).
		Set("display_name", name).
		Where(entsql.EQ("id", id)).
		Query()
	ok, err := execAffected(ctx, r.db, query, args)
	if err != nil {
		return Classify("set display name", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

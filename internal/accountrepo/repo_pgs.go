// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/pkg/dbpkg"
	"github.com/go-teller/teller-bank/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (name, number_ciphertext, pin_hash, salt)
VALUES
    ($1, $2, $3, $4)
RETURNING id, name, number_ciphertext, pin_hash, salt, balance_cents, created_at
`

// Create inserts a zero-balance account and returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, arg.Name, arg.NumberCiphertext, arg.PINHash, arg.Salt)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.NumberCiphertext,
		&a.PINHash,
		&a.Salt,
		&a.BalanceCents,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_number_ciphertext_key" {
				return a, domain.ErrAccountNumberTaken
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const addBalanceQuery = `
UPDATE accounts
SET balance_cents = balance_cents + $1
WHERE id = $2
RETURNING id, name, number_ciphertext, pin_hash, salt, balance_cents, created_at
`

// AddBalance changes the account's balance by amountCents (negative to debit)
// and returns the changed account. The balance check and write happen in one
// statement, so concurrent debits cannot both observe a sufficient balance.
func (r *RepoPGS) AddBalance(ctx context.Context, amountCents, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, amountCents, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.NumberCiphertext,
		&a.PINHash,
		&a.Salt,
		&a.BalanceCents,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_cents_check" {
				return a, domain.ErrInsufficientBalance
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, name, number_ciphertext, pin_hash, salt, balance_cents, created_at
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.NumberCiphertext,
		&a.PINHash,
		&a.Salt,
		&a.BalanceCents,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT
	id, name, number_ciphertext, pin_hash, salt, balance_cents, created_at
FROM accounts
ORDER BY id
`

// List returns every stored account. Account numbers are persisted as
// non-deterministic ciphertext, so lookup by number has to decrypt and
// compare each row; callers scan the full list.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.NumberCiphertext,
			&a.PINHash,
			&a.Salt,
			&a.BalanceCents,
			&a.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

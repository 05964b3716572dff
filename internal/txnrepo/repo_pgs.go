// Package txnrepo manages repository layer of the transaction log.
package txnrepo

import (
	"context"
	"database/sql"

	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/pkg/dbpkg"
	"github.com/go-teller/teller-bank/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction log repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction log RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const createQuery = `
INSERT INTO
    transactions (account_id, kind, amount_cents, counterparty)
VALUES
    ($1, $2, $3, $4)
RETURNING id, account_id, kind, amount_cents, counterparty, created_at
`

// Create appends a transaction row and returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	counterparty := sql.NullString{String: arg.Counterparty, Valid: arg.Counterparty != ""}

	row := r.db.QueryRowContext(ctx, createQuery, arg.AccountID, arg.Kind, arg.AmountCents, counterparty)

	txn, err := scanTxn(row.Scan)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_account_id_fkey":
				return txn, domain.ErrAccountNotFound
			case "transactions_amount_cents_check":
				return txn, domain.ErrInvalidAmount
			}
		}

		return txn, errorspkg.ErrInternal
	}

	return txn, nil
}

const listQuery = `
SELECT
	id, account_id, kind, amount_cents, counterparty, created_at
FROM transactions
WHERE account_id = $1
ORDER BY id DESC
LIMIT $2
`

// ListByAccount returns up to limit transactions of the account, newest first.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int64, limit int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, limit)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		txn, err := scanTxn(rows.Scan)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, txn)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

func scanTxn(scan func(...interface{}) error) (domain.Transaction, error) {
	var (
		txn          domain.Transaction
		counterparty sql.NullString
	)

	err := scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Kind,
		&txn.AmountCents,
		&counterparty,
		&txn.CreatedAt,
	)
	if err != nil {
		return txn, err
	}

	txn.Counterparty = counterparty.String

	return txn, nil
}

// Package ledgerrepo manages multi-statement financial transactions.
//
// Every mutation couples its balance update with the matching transaction log
// rows inside a single database transaction, so the ledger never observes a
// balance without its log row or a half-committed transfer.
package ledgerrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-teller/teller-bank/internal/accountrepo"
	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/internal/txnrepo"
	"github.com/go-teller/teller-bank/pkg/errorspkg"

	"github.com/rs/zerolog"
)

// RepoPGS facilitates ledger transaction logic. It owns the connection so it
// can begin database transactions.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{conn: db}
}

type repos struct {
	accounts *accountrepo.RepoPGS
	txns     *txnrepo.RepoPGS
}

// execTx executes fn within a database transaction.
func (r *RepoPGS) execTx(ctx context.Context, fn func(repos) error) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	err = fn(repos{
		accounts: accountrepo.NewRepoPGS(tx),
		txns:     txnrepo.NewRepoPGS(tx),
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// Deposit credits the account and appends the deposit log row atomically.
func (r *RepoPGS) Deposit(ctx context.Context, accountID, amountCents int64) (domain.MutationResult, error) {
	var result domain.MutationResult

	err := r.execTx(ctx, func(q repos) error {
		var err error

		result.Account, err = q.accounts.AddBalance(ctx, amountCents, accountID)
		if err != nil {
			return err
		}

		result.Txn, err = q.txns.Create(ctx, domain.CreateTransactionParams{
			AccountID:   accountID,
			Kind:        domain.KindDeposit,
			AmountCents: amountCents,
		})

		return err
	})

	return result, err
}

// Withdraw debits the account and appends the withdraw log row atomically.
// An insufficient balance aborts the transaction with ErrInsufficientBalance
// and leaves the balance unchanged.
func (r *RepoPGS) Withdraw(ctx context.Context, accountID, amountCents int64) (domain.MutationResult, error) {
	var result domain.MutationResult

	err := r.execTx(ctx, func(q repos) error {
		var err error

		result.Account, err = q.accounts.AddBalance(ctx, -amountCents, accountID)
		if err != nil {
			return err
		}

		result.Txn, err = q.txns.Create(ctx, domain.CreateTransactionParams{
			AccountID:   accountID,
			Kind:        domain.KindWithdraw,
			AmountCents: amountCents,
		})

		return err
	})

	return result, err
}

// Transfer moves money between two accounts.
//
// It debits the source, credits the destination, and appends the matched
// transfer_out/transfer_in rows within a single database transaction.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferTxResult, error) {
	var result domain.TransferTxResult

	err := r.execTx(ctx, func(q repos) error {
		var err error

		result.OutTxn, err = q.txns.Create(ctx, domain.CreateTransactionParams{
			AccountID:    arg.FromAccountID,
			Kind:         domain.KindTransferOut,
			AmountCents:  arg.AmountCents,
			Counterparty: arg.ToNumber,
		})
		if err != nil {
			return err
		}

		result.InTxn, err = q.txns.Create(ctx, domain.CreateTransactionParams{
			AccountID:    arg.ToAccountID,
			Kind:         domain.KindTransferIn,
			AmountCents:  arg.AmountCents,
			Counterparty: arg.FromNumber,
		})
		if err != nil {
			return err
		}

		// To avoid deadlocks execute balance updates in consistent id order
		if arg.FromAccountID < arg.ToAccountID {
			result.FromAccount, result.ToAccount, err = addBalances(ctx, q.accounts,
				arg.FromAccountID, -arg.AmountCents,
				arg.ToAccountID, arg.AmountCents,
			)
		} else {
			result.ToAccount, result.FromAccount, err = addBalances(ctx, q.accounts,
				arg.ToAccountID, arg.AmountCents,
				arg.FromAccountID, -arg.AmountCents,
			)
		}

		return err
	})

	return result, err
}

func addBalances(ctx context.Context, r *accountrepo.RepoPGS,
	account1ID, amount1, account2ID, amount2 int64,
) (domain.Account, domain.Account, error) {
	account1, err := r.AddBalance(ctx, amount1, account1ID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	account2, err := r.AddBalance(ctx, amount2, account2ID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	return account1, account2, nil
}

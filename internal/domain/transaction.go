package domain

import "time"

// Transaction kinds.
const (
	KindDeposit     = "deposit"
	KindWithdraw    = "withdraw"
	KindTransferOut = "transfer_out"
	KindTransferIn  = "transfer_in"
)

// Transaction holds one row of the append-only transaction log.
// AmountCents is always positive; the kind carries the sign.
type Transaction struct {
	ID           int64
	AccountID    int64
	Kind         string
	AmountCents  int64
	Counterparty string // plaintext number of the other side, transfers only
	CreatedAt    time.Time
}

// CreateTransactionParams is the input data to insert a transaction row.
type CreateTransactionParams struct {
	AccountID    int64
	Kind         string
	AmountCents  int64
	Counterparty string
}

// TransferParams is the input data for the transfer transaction.
// Numbers are carried as plaintext so that each log row can reference the
// other side as counterparty.
type TransferParams struct {
	FromAccountID int64
	ToAccountID   int64
	FromNumber    string
	ToNumber      string
	AmountCents   int64
}

// TransferTxResult is the result of the transfer transaction.
type TransferTxResult struct {
	FromAccount Account
	ToAccount   Account
	OutTxn      Transaction
	InTxn       Transaction
}

// MutationResult is the result of a single-account balance mutation.
type MutationResult struct {
	Account Account
	Txn     Transaction
}

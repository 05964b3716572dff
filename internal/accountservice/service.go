// Package accountservice manages business logic layer of accounts.
//
// It is the only layer that sees plaintext account numbers: they arrive from
// the caller, get encrypted before they reach the store, and stored
// ciphertexts get decrypted here during lookup.
package accountservice

import (
	"context"
	"errors"

	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/pkg/errorspkg"
	"github.com/go-teller/teller-bank/pkg/pinpkg"
	"github.com/go-teller/teller-bank/pkg/randompkg"
	"github.com/rs/zerolog"
)

// maxCreateAttempts bounds retries when an auto-generated account number
// collides with an existing one.
const maxCreateAttempts = 5

// Cipher provides the encryption capability needed to protect stored account numbers.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AccountRepo provides data access layer interface for account rows.
type AccountRepo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

// TxnRepo provides data access layer interface for the transaction log.
type TxnRepo interface {
	ListByAccount(ctx context.Context, accountID int64, limit int32) ([]domain.Transaction, error)
}

// Ledger provides the transactional mutations of the ledger store.
type Ledger interface {
	Deposit(ctx context.Context, accountID, amountCents int64) (domain.MutationResult, error)
	Withdraw(ctx context.Context, accountID, amountCents int64) (domain.MutationResult, error)
	Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferTxResult, error)
}

// Service facilitates account service layer logic.
type Service struct {
	accounts AccountRepo
	txns     TxnRepo
	ledger   Ledger
	cipher   Cipher
}

// New returns account service struct to manage account bussines logic.
func New(ar AccountRepo, tr TxnRepo, lr Ledger, c Cipher) *Service {
	return &Service{
		accounts: ar,
		txns:     tr,
		ledger:   lr,
		cipher:   c,
	}
}

// CreateAccount creates an account with a hashed PIN, an encrypted account
// number, and a zero balance. An empty number is auto-generated; collisions
// of generated numbers are retried, a supplied colliding number surfaces
// domain.ErrAccountNumberTaken.
//
// The returned plaintext number is the caller's only chance to record it.
func (s *Service) CreateAccount(ctx context.Context, name, pin, number string) (string, error) {
	l := zerolog.Ctx(ctx)

	generated := number == ""

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if generated {
			number = randompkg.AccountNumber()
		}

		salt, err := pinpkg.NewSalt()
		if err != nil {
			l.Error().Err(err).Send()
			return "", errorspkg.ErrInternal
		}

		ciphertext, err := s.cipher.Encrypt([]byte(number))
		if err != nil {
			l.Error().Err(err).Send()
			return "", errorspkg.ErrInternal
		}

		_, err = s.accounts.Create(ctx, domain.CreateAccountParams{
			Name:             name,
			NumberCiphertext: ciphertext,
			PINHash:          pinpkg.Hash(pin, salt),
			Salt:             salt,
		})

		if generated && errors.Is(err, domain.ErrAccountNumberTaken) {
			l.Info().Int("attempt", attempt+1).Msg("generated account number collided, retrying")
			continue
		}

		if err != nil {
			return "", err
		}

		return number, nil
	}

	return "", domain.ErrAccountNumberTaken
}

// Authenticate resolves the account and verifies the PIN. An unknown account
// and a wrong PIN both return domain.ErrAuthFailed so that the caller cannot
// probe which numbers exist; the precise cause is only logged.
func (s *Service) Authenticate(ctx context.Context, number, pin string) (int64, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.findByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			l.Warn().Msg("authentication against unknown account")
			return 0, domain.ErrAuthFailed
		}

		return 0, err
	}

	if err := pinpkg.Check(pin, account.Salt, account.PINHash); err != nil {
		l.Warn().Int64("account_id", account.ID).Msg("wrong pin")
		return 0, domain.ErrAuthFailed
	}

	return account.ID, nil
}

// GetBalance returns the account balance in cents.
func (s *Service) GetBalance(ctx context.Context, number string) (int64, error) {
	account, err := s.findByNumber(ctx, number)
	if err != nil {
		return 0, err
	}

	return account.BalanceCents, nil
}

// Deposit credits the account and records the deposit.
func (s *Service) Deposit(ctx context.Context, number string, amountCents int64) (domain.MutationResult, error) {
	if amountCents <= 0 {
		return domain.MutationResult{}, domain.ErrInvalidAmount
	}

	account, err := s.findByNumber(ctx, number)
	if err != nil {
		return domain.MutationResult{}, err
	}

	return s.ledger.Deposit(ctx, account.ID, amountCents)
}

// Withdraw debits the account and records the withdrawal. A balance below
// the amount fails with domain.ErrInsufficientBalance, balance unchanged.
func (s *Service) Withdraw(ctx context.Context, number string, amountCents int64) (domain.MutationResult, error) {
	if amountCents <= 0 {
		return domain.MutationResult{}, domain.ErrInvalidAmount
	}

	account, err := s.findByNumber(ctx, number)
	if err != nil {
		return domain.MutationResult{}, err
	}

	return s.ledger.Withdraw(ctx, account.ID, amountCents)
}

// Transfer moves amountCents between the two accounts as one atomic unit:
// both balance changes and both log rows commit together or not at all.
func (s *Service) Transfer(ctx context.Context, fromNumber, toNumber string, amountCents int64) (domain.TransferTxResult, error) {
	var result domain.TransferTxResult

	if amountCents <= 0 {
		return result, domain.ErrInvalidAmount
	}

	from, err := s.findByNumber(ctx, fromNumber)
	if err != nil {
		return result, err
	}

	to, err := s.findByNumber(ctx, toNumber)
	if err != nil {
		return result, err
	}

	if from.ID == to.ID {
		return result, domain.ErrSameAccount
	}

	return s.ledger.Transfer(ctx, domain.TransferParams{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		FromNumber:    fromNumber,
		ToNumber:      toNumber,
		AmountCents:   amountCents,
	})
}

// History returns up to limit transactions of the account, newest first.
func (s *Service) History(ctx context.Context, number string, limit int32) ([]domain.Transaction, error) {
	account, err := s.findByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	return s.txns.ListByAccount(ctx, account.ID, limit)
}

// findByNumber resolves an account by its plaintext number.
//
// Numbers are stored as non-deterministic ciphertext, so there is nothing to
// index: every stored ciphertext is decrypted and compared. O(n) over all
// accounts, traded for keeping the number column opaque at rest.
func (s *Service) findByNumber(ctx context.Context, number string) (domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	for _, account := range accounts {
		plaintext, err := s.cipher.Decrypt(account.NumberCiphertext)
		if err != nil {
			// A record that no longer decrypts is corrupt or was written
			// under another key. That is fatal for the lookup, not a miss.
			zerolog.Ctx(ctx).Error().Err(err).Int64("account_id", account.ID).Send()
			return domain.Account{}, err
		}

		if string(plaintext) == number {
			return account, nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

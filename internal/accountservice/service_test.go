package accountservice

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/pkg/pinpkg"
	"github.com/go-teller/teller-bank/pkg/randompkg"
	"github.com/go-teller/teller-bank/pkg/vaultpkg"
	gomock "github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testVault(t *testing.T) vaultpkg.Vault {
	t.Helper()

	key := make([]byte, vaultpkg.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read() failed: %v", err)
	}

	vault, err := vaultpkg.New(key)
	if err != nil {
		t.Fatalf("vaultpkg.New() failed: %v", err)
	}

	return vault
}

// seedAccount returns an account fixture whose ciphertext and credentials
// are consistent with the given vault, number and pin.
func seedAccount(t *testing.T, vault vaultpkg.Vault, id int64, number, pin string, balanceCents int64) domain.Account {
	t.Helper()

	salt, err := pinpkg.NewSalt()
	require.NoError(t, err)

	ciphertext, err := vault.Encrypt([]byte(number))
	require.NoError(t, err)

	return domain.Account{
		ID:               id,
		Name:             randompkg.Name(),
		NumberCiphertext: ciphertext,
		PINHash:          pinpkg.Hash(pin, salt),
		Salt:             salt,
		BalanceCents:     balanceCents,
		CreatedAt:        time.Now(),
	}
}

type mocks struct {
	accounts *MockAccountRepo
	txns     *MockTxnRepo
	ledger   *MockLedger
}

func newService(t *testing.T, vault vaultpkg.Vault) (*Service, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := mocks{
		accounts: NewMockAccountRepo(ctrl),
		txns:     NewMockTxnRepo(ctrl),
		ledger:   NewMockLedger(ctrl),
	}

	return New(m.accounts, m.txns, m.ledger, vault), m
}

// eqCreateAccountParamsMatcher matches CreateAccountParams whose ciphertext
// decrypts to the wanted number and whose PIN digest verifies, since both
// fields are freshly randomized on every call.
type eqCreateAccountParamsMatcher struct {
	vault  vaultpkg.Vault
	name   string
	number string
	pin    string
}

func (e eqCreateAccountParamsMatcher) Matches(x interface{}) bool {
	arg, ok := x.(domain.CreateAccountParams)
	if !ok {
		return false
	}

	if arg.Name != e.name {
		return false
	}

	plaintext, err := e.vault.Decrypt(arg.NumberCiphertext)
	if err != nil || string(plaintext) != e.number {
		return false
	}

	return pinpkg.Check(e.pin, arg.Salt, arg.PINHash) == nil
}

func (e eqCreateAccountParamsMatcher) String() string {
	return fmt.Sprintf("matches account %v for %v", e.number, e.name)
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	name := randompkg.Name()
	pin := randompkg.PIN()
	number := randompkg.AccountNumber()

	t.Run("SuppliedNumber", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().
			Create(gomock.Any(), eqCreateAccountParamsMatcher{vault, name, number, pin}).
			Times(1).
			Return(domain.Account{ID: 1}, nil)

		got, err := service.CreateAccount(context.Background(), name, pin, number)
		require.NoError(t, err)
		require.Equal(t, number, got)
	})

	t.Run("GeneratedNumber", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Times(1).
			Return(domain.Account{ID: 1}, nil)

		got, err := service.CreateAccount(context.Background(), name, pin, "")
		require.NoError(t, err)
		require.Len(t, got, randompkg.AccountNumberDigits)
	})

	t.Run("GeneratedNumberCollisionRetries", func(t *testing.T) {
		service, m := newService(t, vault)

		gomock.InOrder(
			m.accounts.EXPECT().
				Create(gomock.Any(), gomock.Any()).
				Return(domain.Account{}, domain.ErrAccountNumberTaken),
			m.accounts.EXPECT().
				Create(gomock.Any(), gomock.Any()).
				Return(domain.Account{ID: 2}, nil),
		)

		got, err := service.CreateAccount(context.Background(), name, pin, "")
		require.NoError(t, err)
		require.Len(t, got, randompkg.AccountNumberDigits)
	})

	t.Run("SuppliedNumberCollisionSurfaces", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Times(1).
			Return(domain.Account{}, domain.ErrAccountNumberTaken)

		_, err := service.CreateAccount(context.Background(), name, pin, number)
		require.ErrorIs(t, err, domain.ErrAccountNumberTaken)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	pin := randompkg.PIN()
	number := randompkg.AccountNumber()
	account := seedAccount(t, vault, 7, number, pin, 0)

	t.Run("OK", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)

		gotID, err := service.Authenticate(context.Background(), number, pin)
		require.NoError(t, err)
		require.Equal(t, account.ID, gotID)
	})

	t.Run("WrongPINIndistinguishableFromUnknownAccount", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil).Times(2)

		_, wrongPINErr := service.Authenticate(context.Background(), number, "0000")
		_, unknownErr := service.Authenticate(context.Background(), randompkg.AccountNumber(), "0000")

		require.ErrorIs(t, wrongPINErr, domain.ErrAuthFailed)
		require.Equal(t, wrongPINErr, unknownErr)
	})

	t.Run("CorruptCiphertextSurfaces", func(t *testing.T) {
		service, m := newService(t, vault)

		corrupt := account
		corrupt.NumberCiphertext = []byte("garbage")
		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{corrupt}, nil)

		_, err := service.Authenticate(context.Background(), number, pin)
		require.ErrorIs(t, err, vaultpkg.ErrCiphertext)
	})
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	number := randompkg.AccountNumber()
	account := seedAccount(t, vault, 3, number, randompkg.PIN(), 5000)

	t.Run("OK", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)

		got, err := service.GetBalance(context.Background(), number)
		require.NoError(t, err)
		require.Equal(t, int64(5000), got)
	})

	t.Run("NotFound", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)

		_, err := service.GetBalance(context.Background(), randompkg.AccountNumber())
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestDeposit(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	number := randompkg.AccountNumber()
	account := seedAccount(t, vault, 4, number, randompkg.PIN(), 0)

	testCases := []struct {
		name        string
		number      string
		amountCents int64
		buildStubs  func(m mocks)
		wantError   error
	}{
		{
			name:        "OK",
			number:      number,
			amountCents: 5000,
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)
				m.ledger.EXPECT().
					Deposit(gomock.Any(), account.ID, int64(5000)).
					Times(1).
					Return(domain.MutationResult{}, nil)
			},
		},
		{
			name:        "ZeroAmount",
			number:      number,
			amountCents: 0,
			buildStubs:  func(m mocks) {},
			wantError:   domain.ErrInvalidAmount,
		},
		{
			name:        "NegativeAmount",
			number:      number,
			amountCents: -100,
			buildStubs:  func(m mocks) {},
			wantError:   domain.ErrInvalidAmount,
		},
		{
			name:        "NotFound",
			number:      randompkg.AccountNumber(),
			amountCents: 5000,
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)
			},
			wantError: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			service, m := newService(t, vault)
			tc.buildStubs(m)

			_, err := service.Deposit(context.Background(), tc.number, tc.amountCents)
			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	number := randompkg.AccountNumber()
	account := seedAccount(t, vault, 5, number, randompkg.PIN(), 3000)

	t.Run("OK", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)
		m.ledger.EXPECT().
			Withdraw(gomock.Any(), account.ID, int64(2000)).
			Times(1).
			Return(domain.MutationResult{}, nil)

		_, err := service.Withdraw(context.Background(), number, 2000)
		require.NoError(t, err)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		service, _ := newService(t, vault)

		_, err := service.Withdraw(context.Background(), number, 0)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)
		m.ledger.EXPECT().
			Withdraw(gomock.Any(), account.ID, int64(999_999)).
			Times(1).
			Return(domain.MutationResult{}, domain.ErrInsufficientBalance)

		_, err := service.Withdraw(context.Background(), number, 999_999)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	vault := testVault(t)

	fromNumber := randompkg.AccountNumber()
	toNumber := randompkg.AccountNumber()
	from := seedAccount(t, vault, 1, fromNumber, randompkg.PIN(), 3000)
	to := seedAccount(t, vault, 2, toNumber, randompkg.PIN(), 0)
	both := []domain.Account{from, to}

	t.Run("OK", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return(both, nil).Times(2)

		wantArg := domain.TransferParams{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			FromNumber:    fromNumber,
			ToNumber:      toNumber,
			AmountCents:   1000,
		}
		m.ledger.EXPECT().
			Transfer(gomock.Any(), wantArg).
			Times(1).
			Return(domain.TransferTxResult{}, nil)

		_, err := service.Transfer(context.Background(), fromNumber, toNumber, 1000)
		require.NoError(t, err)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		service, _ := newService(t, vault)

		_, err := service.Transfer(context.Background(), fromNumber, toNumber, -1)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("DestinationNotFound", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return(both, nil).Times(2)

		_, err := service.Transfer(context.Background(), fromNumber, randompkg.AccountNumber(), 1000)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("SameAccount", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return(both, nil).Times(2)

		_, err := service.Transfer(context.Background(), fromNumber, fromNumber, 1000)
		require.ErrorIs(t, err, domain.ErrSameAccount)
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	vault := testVault(t)
	number := randompkg.AccountNumber()
	account := seedAccount(t, vault, 9, number, randompkg.PIN(), 1000)

	txns := []domain.Transaction{
		{ID: 2, AccountID: account.ID, Kind: domain.KindTransferOut, AmountCents: 1000, Counterparty: randompkg.AccountNumber()},
		{ID: 1, AccountID: account.ID, Kind: domain.KindDeposit, AmountCents: 2000},
	}

	t.Run("OK", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)
		m.txns.EXPECT().
			ListByAccount(gomock.Any(), account.ID, int32(10)).
			Times(1).
			Return(txns, nil)

		got, err := service.History(context.Background(), number, 10)
		require.NoError(t, err)

		if !cmp.Equal(got, txns) {
			t.Errorf("History() = %+v, want %+v", got, txns)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		service, m := newService(t, vault)

		m.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{account}, nil)

		_, err := service.History(context.Background(), randompkg.AccountNumber(), 10)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

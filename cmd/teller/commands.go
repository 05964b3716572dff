package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/go-teller/teller-bank/internal/accountservice"
	"github.com/go-teller/teller-bank/internal/domain"
	"github.com/go-teller/teller-bank/pkg/configpkg"
	"github.com/go-teller/teller-bank/pkg/currencypkg"
	"github.com/go-teller/teller-bank/pkg/dbpkg"
	"github.com/go-teller/teller-bank/pkg/vaultpkg"
)

func dispatch(ctx context.Context, service *accountservice.Service, command string, args []string) int {
	var err error

	switch command {
	case "create-account":
		err = cmdCreateAccount(ctx, service, args)
	case "login":
		err = cmdLogin(ctx, service, args)
	case "balance":
		err = cmdBalance(ctx, service, args)
	case "deposit":
		err = cmdDeposit(ctx, service, args)
	case "withdraw":
		err = cmdWithdraw(ctx, service, args)
	case "transfer":
		err = cmdTransfer(ctx, service, args)
	case "history":
		err = cmdHistory(ctx, service, args)
	default:
		usage()
		return 2
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		return 1
	}

	return 0
}

// userMessage maps a domain error to the message shown at the terminal.
// Auth failures stay generic: the operator must not learn whether the
// account number or the PIN was the wrong half.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		return "authentication failed"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient funds"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "amount must be positive"
	case errors.Is(err, domain.ErrAccountNumberTaken):
		return "account number already taken"
	case errors.Is(err, domain.ErrSameAccount):
		return "cannot transfer to the same account"
	case errors.Is(err, vaultpkg.ErrCiphertext):
		return "stored record cannot be decrypted; check the key file"
	default:
		return "operation failed"
	}
}

func runGenKey(ctx context.Context, config configpkg.Config) int {
	if _, err := vaultpkg.GenerateKey(config.KeyFile); err != nil {
		if errors.Is(err, vaultpkg.ErrKeyExists) {
			// Regenerating would orphan every stored ciphertext.
			fmt.Fprintf(os.Stderr, "error: key file %s already exists; refusing to overwrite\n", config.KeyFile)
			return 1
		}

		zerolog.Ctx(ctx).Error().Err(err).Msg("cannot generate key")
		fmt.Fprintln(os.Stderr, "error: cannot generate key")
		return 1
	}

	fmt.Printf("Key generated at %s\n", config.KeyFile)
	return 0
}

func runInitDB(ctx context.Context, db *sql.DB, config configpkg.Config) int {
	if err := dbpkg.MigrateUp(db, config.MigrationsURL); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("cannot run migrations")
		fmt.Fprintln(os.Stderr, "error: cannot initialize database")
		return 1
	}

	fmt.Println("Database initialized.")
	return 0
}

func cmdCreateAccount(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	name := fs.String("name", "", "customer name")
	pin := fs.String("pin", "", "account PIN")
	number := fs.String("number", "", "optional 10-digit account number (auto if omitted)")
	fs.Parse(args)

	if *name == "" || *pin == "" {
		return fmt.Errorf("create-account: -name and -pin are required")
	}

	got, err := service.CreateAccount(ctx, *name, *pin, *number)
	if err != nil {
		return err
	}

	fmt.Printf("Account created.\nRecord this number securely: %s\n", got)
	return nil
}

func cmdLogin(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	account := fs.String("account", "", "account number")
	pin := fs.String("pin", "", "account PIN")
	fs.Parse(args)

	if _, err := service.Authenticate(ctx, *account, *pin); err != nil {
		return err
	}

	fmt.Println("Login successful.")
	return nil
}

func cmdBalance(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	account := fs.String("account", "", "account number")
	fs.Parse(args)

	cents, err := service.GetBalance(ctx, *account)
	if err != nil {
		return err
	}

	fmt.Printf("Balance: %s\n", currencypkg.Format(cents))
	return nil
}

func cmdDeposit(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	account := fs.String("account", "", "account number")
	amount := fs.String("amount", "", "amount in dollars")
	fs.Parse(args)

	cents, err := currencypkg.ToCents(*amount)
	if err != nil {
		return err
	}

	result, err := service.Deposit(ctx, *account, cents)
	if err != nil {
		return err
	}

	fmt.Printf("Deposited %s\n", currencypkg.Format(result.Txn.AmountCents))
	return nil
}

func cmdWithdraw(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	account := fs.String("account", "", "account number")
	amount := fs.String("amount", "", "amount in dollars")
	fs.Parse(args)

	cents, err := currencypkg.ToCents(*amount)
	if err != nil {
		return err
	}

	result, err := service.Withdraw(ctx, *account, cents)
	if err != nil {
		return err
	}

	fmt.Printf("Withdrew %s\n", currencypkg.Format(result.Txn.AmountCents))
	return nil
}

func cmdTransfer(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.String("from", "", "source account number")
	to := fs.String("to", "", "destination account number")
	amount := fs.String("amount", "", "amount in dollars")
	fs.Parse(args)

	cents, err := currencypkg.ToCents(*amount)
	if err != nil {
		return err
	}

	result, err := service.Transfer(ctx, *from, *to, cents)
	if err != nil {
		return err
	}

	fmt.Printf("Transferred %s from %s to %s\n", currencypkg.Format(result.OutTxn.AmountCents), *from, *to)
	return nil
}

func cmdHistory(ctx context.Context, service *accountservice.Service, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	account := fs.String("account", "", "account number")
	limit := fs.Int("limit", 10, "maximum number of entries")
	fs.Parse(args)

	txns, err := service.History(ctx, *account, int32(*limit))
	if err != nil {
		return err
	}

	for _, txn := range txns {
		line := fmt.Sprintf("[%s] %-13s %s",
			txn.CreatedAt.Format("2006-01-02 15:04:05"),
			txn.Kind,
			currencypkg.Format(txn.AmountCents),
		)
		if txn.Counterparty != "" {
			line += fmt.Sprintf(" (%s)", txn.Counterparty)
		}

		fmt.Println(line)
	}

	return nil
}

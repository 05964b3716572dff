// Package main provides the teller terminal CLI over the account ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/go-teller/teller-bank/internal/accountrepo"
	"github.com/go-teller/teller-bank/internal/accountservice"
	"github.com/go-teller/teller-bank/internal/ledgerrepo"
	"github.com/go-teller/teller-bank/internal/txnrepo"
	"github.com/go-teller/teller-bank/pkg/configpkg"
	"github.com/go-teller/teller-bank/pkg/dbpkg"
	"github.com/go-teller/teller-bank/pkg/vaultpkg"

	_ "github.com/lib/pq"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Error().Err(err).Msg("cannot load config")
		return 1
	}

	logger := newLogger(config)

	// Every invocation is one logical operation; stamp its log lines.
	logger = logger.With().Str("operation_id", uuid.NewString()).Logger()
	ctx := logger.WithContext(context.Background())

	if len(args) == 0 {
		usage()
		return 2
	}

	command, args := args[0], args[1:]

	// genkey touches only the key file
	if command == "genkey" {
		return runGenKey(ctx, config)
	}

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Error().Err(err).Msg("cannot connect to database")
		fmt.Fprintln(os.Stderr, "error: cannot connect to database")
		return 1
	}
	defer db.Close()

	if command == "initdb" {
		return runInitDB(ctx, db, config)
	}

	key, err := vaultpkg.LoadKey(config.KeyFile)
	if err != nil {
		logger.Error().Err(err).Msg("cannot load encryption key")
		fmt.Fprintln(os.Stderr, "error: cannot load encryption key")
		return 1
	}

	vault, err := vaultpkg.New(key)
	if err != nil {
		logger.Error().Err(err).Msg("cannot initialize vault")
		fmt.Fprintln(os.Stderr, "error: cannot initialize vault")
		return 1
	}

	service := accountservice.New(
		accountrepo.NewRepoPGS(db),
		txnrepo.NewRepoPGS(db),
		ledgerrepo.NewRepoPGS(db),
		vault,
	)

	return dispatch(ctx, service, command, args)
}

func newLogger(config configpkg.Config) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	if config.Environement == "development" {
		logger = logger.
			Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(zerolog.WarnLevel)
	}

	return logger
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: teller <command> [flags]

commands:
  initdb          apply schema migrations
  genkey          generate the encryption key file (refuses to overwrite)
  create-account  create an account, print its number
  login           verify an account number and PIN
  balance         print an account balance
  deposit         credit an account
  withdraw        debit an account
  transfer        move money between two accounts
  history         list recent transactions, newest first`)
}

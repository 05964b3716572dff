// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrAccountNotFound indicates that no stored account matches the given number.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNumberTaken indicates that the account number is already in use.
	ErrAccountNumberTaken = errors.New("account number already taken")
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSameAccount indicates a transfer whose source and destination resolve to the same account.
	ErrSameAccount = errors.New("cannot transfer to the same account")
	// ErrAuthFailed indicates failed authentication. It covers both an unknown
	// account and a wrong PIN so that callers cannot tell whether an account exists.
	ErrAuthFailed = errors.New("authentication failed")
)

// Account holds one customer account. The account number is persisted only as
// NumberCiphertext; the plaintext never reaches the database.
type Account struct {
	ID               int64
	Name             string
	NumberCiphertext []byte
	PINHash          []byte
	Salt             []byte
	BalanceCents     int64
	CreatedAt        time.Time
}

// CreateAccountParams is the input data to insert an account row.
type CreateAccountParams struct {
	Name             string
	NumberCiphertext []byte
	PINHash          []byte
	Salt             []byte
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means no authenticated caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the entity does not exist or belongs to someone else.
	ErrNotFound = errors.New("not found")

	// ErrSystemEntityProtected means a delete targeted a platform-seeded entity.
	ErrSystemEntityProtected = errors.New("system entities cannot be deleted")

	// ErrAccountInUse means an account still has transactions referencing it.
	ErrAccountInUse = errors.New("account has transactions")

	// ErrInvalidInput covers request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken means the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials means the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StoreError wraps a failed read or write against the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err unless it is nil or already a domain sentinel.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrAccountInUse, ErrEmailTaken, ErrSystemEntityProtected} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}

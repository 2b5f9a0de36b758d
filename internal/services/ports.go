package services

import (
	"context"
	"time"

	"billbook/internal/amqp"
)

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// EventPublisher delivers bill change notifications. It may be nil.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, msg amqp.BillEventMessage) error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func nowUTC(c Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

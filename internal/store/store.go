package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/milkfeed/internal/model"
)

// ErrNotFound is returned when no notification has the requested ID.
var ErrNotFound = errors.New("notification not found")

// Store defines the durable local persistence for notifications.
// Records are keyed by ID; every method is safe for concurrent use.
type Store interface {
	// Put inserts the notification or overwrites the one with the same ID.
	// A stored read flag is never cleared by an overwrite.
	Put(ctx context.Context, n model.Notification) error

	// GetAll returns every stored notification in no particular order.
	GetAll(ctx context.Context) ([]model.Notification, error)

	// GetByID returns the notification with the given ID or ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Notification, error)

	// MarkRead flags the notification as read. It reports whether the
	// record changed (false if it was already read) and returns
	// ErrNotFound for an unknown ID.
	MarkRead(ctx context.Context, id string) (bool, error)

	// CountUnread returns the number of stored notifications not yet read.
	CountUnread(ctx context.Context) (int, error)
}

// Unavailable is the Store used when the database could not be opened.
// Every operation fails with Err, so callers log and carry on with an
// in-memory view only.
type Unavailable struct {
	Err error
}

func (u Unavailable) Put(context.Context, model.Notification) error {
	return fmt.Errorf("store unavailable: %w", u.Err)
}

func (u Unavailable) GetAll(context.Context) ([]model.Notification, error) {
	return nil, fmt.Errorf("store unavailable: %w", u.Err)
}

func (u Unavailable) GetByID(context.Context, string) (*model.Notification, error) {
	return nil, fmt.Errorf("store unavailable: %w", u.Err)
}

func (u Unavailable) MarkRead(context.Context, string) (bool, error) {
	return false, fmt.Errorf("store unavailable: %w", u.Err)
}

func (u Unavailable) CountUnread(context.Context) (int, error) {
	return 0, fmt.Errorf("store unavailable: %w", u.Err)
}

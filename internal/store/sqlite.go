package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/milkfeed/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// notificationRow is the on-disk shape of a notification.
type notificationRow struct {
	ID        string    `db:"id"`
	Message   string    `db:"message"`
	Kind      string    `db:"kind"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
	IsRead    int       `db:"is_read"`
}

const selectColumns = "id, message, kind, source, created_at, is_read"

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
// The special path ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	inMemory := dbPath == ":memory:"

	dsn := dbPath
	if !inMemory {
		// Pragmas in the DSN apply to every pooled connection.
		dsn = "file:" + dbPath +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite db %s: %w", dbPath, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Put inserts or replaces a notification in one statement, so readers
// never observe a partially written row. is_read only moves from 0 to 1.
func (s *SQLiteStore) Put(ctx context.Context, n model.Notification) error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("notification id must not be empty")
	}
	if n.Kind == "" {
		n.Kind = model.KindInfo
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, message, kind, source, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message    = excluded.message,
			kind       = excluded.kind,
			source     = excluded.source,
			created_at = excluded.created_at,
			is_read    = MAX(notifications.is_read, excluded.is_read)`,
		n.ID, n.Message, string(n.Kind), n.Source,
		n.CreatedAt.UTC(), boolToInt(n.IsRead),
	)
	if err != nil {
		return fmt.Errorf("putting notification %s: %w", n.ID, err)
	}
	return nil
}

// GetAll retrieves every stored notification. Callers sort.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+selectColumns+" FROM notifications")
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.toModel())
	}
	return notifications, nil
}

// GetByID retrieves a single notification by its ID.
func (s *SQLiteStore) GetByID(
	ctx context.Context,
	id string,
) (*model.Notification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+selectColumns+" FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}

	n := row.toModel()
	return &n, nil
}

// MarkRead marks a single notification as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND is_read = 0", id,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification %s as read: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if rows > 0 {
		return true, nil
	}

	var exists int
	err = s.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM notifications WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("checking notification %s: %w", id, err)
	}
	if exists == 0 {
		return false, fmt.Errorf("marking notification %s as read: %w", id, ErrNotFound)
	}
	return false, nil
}

// CountUnread returns the number of notifications with is_read = 0.
func (s *SQLiteStore) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE is_read = 0")
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (r notificationRow) toModel() model.Notification {
	return model.Notification{
		ID:        r.ID,
		Message:   r.Message,
		Kind:      model.ParseKind(r.Kind),
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		IsRead:    r.IsRead != 0,
	}
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

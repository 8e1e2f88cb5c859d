package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// insert replaces any previous row for the name. Callers hold the claim lock,
// so a surviving row belongs to a dead owner.
func (s *Store) insert(ctx context.Context, entry Entry) error {
	return s.exec(ctx,
		`INSERT OR REPLACE INTO services (name, socket_path, pid, token, process, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.SocketPath, entry.PID, entry.Token, entry.Process,
		entry.RegisteredAt.Format(time.RFC3339Nano),
	)
}

// deleteRow removes the row only while it still carries token.
func (s *Store) deleteRow(ctx context.Context, name, token string) error {
	return s.exec(ctx, `DELETE FROM services WHERE name = ? AND token = ?`, name, token)
}

func (s *Store) get(ctx context.Context, name string) (Entry, bool, error) {
	var entry Entry
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT name, socket_path, pid, token, process, registered_at FROM services WHERE name = ?`, name)
		var scanErr error
		entry, scanErr = scanEntry(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry        Entry
		registeredAt string
	)
	if err := row.Scan(&entry.Name, &entry.SocketPath, &entry.PID, &entry.Token, &entry.Process, &registeredAt); err != nil {
		return Entry{}, err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, registeredAt); err == nil {
		entry.RegisteredAt = parsed
	}
	return entry, nil
}

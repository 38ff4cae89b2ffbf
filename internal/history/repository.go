// Package history records lifecycle events (configure, run, delete, boot)
// in the SQLite history database so "history" can show what happened to
// each camera and when.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the lifecycle service.
const (
	ActionConfigure   = "configure"
	ActionRun         = "run"
	ActionDelete      = "delete"
	ActionBootEnable  = "boot-enable"
	ActionBootDisable = "boot-disable"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Event is one recorded lifecycle operation.
type Event struct {
	ID       string         `json:"id"`
	Action   string         `json:"action"`
	Device   string         `json:"device,omitempty"`
	ExitCode int            `json:"exit_code"`
	Error    string         `json:"error,omitempty"`
	Details  map[string]any `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	Action string // optional
	Device string // optional
	Limit  int    // default 50, max 500
}

// Repository defines the interface for history operations.
type Repository interface {
	Create(ctx context.Context, ev *Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// SQLiteRepository stores events in the events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, ev *Event) error {
	if ev.Action == "" {
		return fmt.Errorf("inserting event: action is required")
	}
	if ev.ID == "" {
		ev.ID = "evt-" + uuid.NewString()[:8]
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if ev.Details != nil {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, action, device, exit_code, error, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Action, ev.Device, ev.ExitCode,
		nullableString(ev.Error), detailsJSON,
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Event, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Device != "" {
		conditions = append(conditions, "device = ?")
		args = append(args, filter.Device)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, action, device, exit_code, error, details, created_at FROM events %s ORDER BY created_at DESC, rowid DESC LIMIT ?",
		where,
	)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var errText, detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&ev.ID, &ev.Action, &ev.Device, &ev.ExitCode,
			&errText, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		if errText.Valid {
			ev.Error = errText.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				ev.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
		}
		ev.CreatedAt = t

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

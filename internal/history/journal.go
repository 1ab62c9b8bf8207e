package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed-width so created_at sorts and compares as text.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Command results recorded in the journal.
const (
	ResultSent      = "sent"
	ResultFailed    = "failed"
	ResultDebounced = "debounced"
)

// TransitionEntry is one journaled automation transition.
type TransitionEntry struct {
	ID         int64             `json:"id"`
	ActuatorID int               `json:"actuator_id"`
	RoomID     int               `json:"room_id"`
	Name       string            `json:"name"`
	DeviceType domain.DeviceType `json:"device_type"`
	On         bool              `json:"on"`
	Reason     string            `json:"reason"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CommandEntry is one journaled outbound command.
type CommandEntry struct {
	ID       int64           `json:"id"`
	Method   string          `json:"method"`
	TargetID int             `json:"target_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Result   string          `json:"result"`
	Error    string          `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Journal writes and reads the transitions and commands tables.
//
// Thread Safety: safe for concurrent use; serialisation is left to the
// underlying *sql.DB.
type Journal struct {
	db     *sql.DB
	logger Logger
	now    func() time.Time
}

// NewJournal creates a Journal over a migrated database.
//
// Parameters:
//   - db: open SQLite connection with the journal schema applied
//   - logger: Logger instance (nil for no logging)
func NewJournal(db *sql.DB, logger Logger) *Journal {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Journal{db: db, logger: logger, now: time.Now}
}

// RecordTransition inserts one transition.
func (j *Journal) RecordTransition(ctx context.Context, t automation.Transition) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions (actuator_id, room_id, name, device_type, turned_on, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ActuatorID, t.RoomID, t.Name, string(t.DeviceType), t.To, t.Reason, j.stamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}

// ReportTransition journals t, logging instead of returning failures so the
// Journal can sit in the automation reporter chain.
func (j *Journal) ReportTransition(ctx context.Context, t automation.Transition) {
	if err := j.RecordTransition(ctx, t); err != nil {
		j.logger.Warn("journal write failed", "actuator_id", t.ActuatorID, "error", err)
	}
}

// RecordCommand inserts one command. An empty payload is stored as {}.
func (j *Journal) RecordCommand(ctx context.Context, e CommandEntry) error {
	if e.Method == "" {
		return fmt.Errorf("command method is required")
	}
	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO commands (method, target_id, payload, result, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Method, e.TargetID, payload, e.Result, e.Error, j.stamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting command: %w", err)
	}
	return nil
}

// RecentTransitions returns the newest transitions first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
func (j *Journal) RecentTransitions(ctx context.Context, limit int) ([]TransitionEntry, error) {
	limit = clampLimit(limit)
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, actuator_id, room_id, name, device_type, turned_on, reason, created_at
		 FROM transitions
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	entries := make([]TransitionEntry, 0, limit)
	for rows.Next() {
		var e TransitionEntry
		var deviceType, createdAt string
		if err := rows.Scan(&e.ID, &e.ActuatorID, &e.RoomID, &e.Name, &deviceType, &e.On, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		e.DeviceType = domain.DeviceType(deviceType)
		if e.CreatedAt, err = parseStamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return entries, nil
}

// RecentCommands returns the newest commands first, with the same limit
// rules as RecentTransitions.
func (j *Journal) RecentCommands(ctx context.Context, limit int) ([]CommandEntry, error) {
	limit = clampLimit(limit)
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, method, target_id, payload, result, error, created_at
		 FROM commands
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	entries := make([]CommandEntry, 0, limit)
	for rows.Next() {
		var e CommandEntry
		var payload, createdAt string
		if err := rows.Scan(&e.ID, &e.Method, &e.TargetID, &payload, &e.Result, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		if e.CreatedAt, err = parseStamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}
	return entries, nil
}

// Prune deletes journal rows older than olderThan from both tables.
//
// Returns:
//   - int64: number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := j.now().UTC().Add(-olderThan).Format(timeLayout)

	var total int64
	for _, table := range []string{"transitions", "commands"} {
		res, err := j.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}

func (j *Journal) stamp() string {
	return j.now().UTC().Format(timeLayout)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func parseStamp(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return t, nil
}

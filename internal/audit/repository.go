// Package audit records and queries the blueprint mutation trail.
//
// The trail is append-only: the service inserts a row for every
// mutation of the blueprint tree and never updates or deletes one.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail. Read operations are not audited;
// only mutations of the blueprint tree and its caches appear here.
const (
	ActionBlueprintAdd    = "blueprint.add"
	ActionBlueprintRemove = "blueprint.remove"
	ActionBlueprintImport = "blueprint.import"
	ActionCacheReset      = "cache.reset"
)

// Sources identify where a mutation originated.
const (
	SourceAPI    = "api"
	SourceMQTT   = "mqtt"
	SourceSystem = "system"
)

// Page size bounds for List.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Domain    string         `json:"domain,omitempty"`
	Path      string         `json:"path,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which audit logs to return. Zero-valued fields are
// ignored, so an empty Filter lists everything.
type Filter struct {
	Action string    // action type (blueprint.add, blueprint.remove, ...)
	Domain string    // blueprint domain
	Path   string    // blueprint path within the domain
	Since  time.Time // only entries at or after this instant
	Limit  int       // default 50, max 200
	Offset int       // pagination offset
}

// whereClause renders the filter as a WHERE fragment plus bind args.
// Every value goes through a placeholder.
func (f Filter) whereClause() (string, []any) {
	var conditions []string
	var args []any

	if f.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, f.Action)
	}
	if f.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, f.Domain)
	}
	if f.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, f.Path)
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// ListResult is one page of matching entries plus the total match
// count, so clients can paginate.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository is the narrow storage surface the API server and the MQTT
// reload path write through. Tests substitute an in-memory fake.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository persists the trail in the service database. The
// audit_logs table ships with the base schema migration.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an already-open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an audit entry. A missing ID or CreatedAt is filled
// in; callers normally supply neither.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()[:8]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	details, err := marshalDetails(log.Details)
	if err != nil {
		return err
	}

	const q = `INSERT INTO audit_logs (id, action, domain, path, actor, source, details, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		log.ID,
		log.Action,
		textOrNull(log.Domain),
		textOrNull(log.Path),
		textOrNull(log.Actor),
		log.Source,
		details,
		log.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// marshalDetails renders the details map as a JSON TEXT value, or NULL
// when there are no details.
func marshalDetails(details map[string]any) (any, error) {
	if details == nil {
		return nil, nil //nolint:nilnil // nil is the NULL bind value
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshalling audit details: %w", err)
	}
	return string(b), nil
}

// textOrNull maps the empty string to NULL for optional TEXT columns.
func textOrNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit logs matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where, args := filter.whereClause()

	// The query strings interpolate only the placeholder-built WHERE
	// fragment; filter values travel as bind args.
	countQuery := "SELECT COUNT(*) FROM audit_logs " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, action, domain, path, actor, source, details, created_at FROM audit_logs " +
		where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// scanAuditLog reads one row. Optional columns come back as NULL and
// stay zero-valued; details are stored as a JSON blob.
func scanAuditLog(rows *sql.Rows) (AuditLog, error) {
	var log AuditLog
	var domain, path, actor, detailsJSON sql.NullString
	var createdAt string

	if err := rows.Scan(&log.ID, &log.Action,
		&domain, &path, &actor, &log.Source, &detailsJSON, &createdAt); err != nil {
		return AuditLog{}, fmt.Errorf("scanning audit log: %w", err)
	}

	log.Domain = domain.String
	log.Path = path.String
	log.Actor = actor.String

	if detailsJSON.Valid && detailsJSON.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
			log.Details = details
		}
	}

	// Create always writes RFC 3339, so anything else is corruption.
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return AuditLog{}, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
	}
	log.CreatedAt = t

	return log, nil
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
)

// auditChanSize bounds the async audit queue. When the buffer is full
// new entries are dropped rather than stalling the request that
// produced them.
const auditChanSize = 256

// auditMutation queues an audit entry for a blueprint tree mutation.
// Reads are never audited. Queueing is best-effort; a full channel
// drops the entry with a warning.
func (s *Server) auditMutation(action, domain, path, actor string, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.AuditLog{
		Action:  action,
		Domain:  domain,
		Path:    path,
		Actor:   actor,
		Source:  audit.SourceAPI,
		Details: details,
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit queue full, dropping entry",
			"action", action,
			"domain", domain,
		)
	}
}

// drainAuditLog writes queued entries one at a time, which suits
// SQLite's single-writer model. On cancellation it flushes whatever is
// still buffered before returning.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.persistAuditEntry(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.persistAuditEntry(entry)
				default:
					return
				}
			}
		}
	}
}

// persistAuditEntry writes with a background context so shutdown does
// not truncate the trail mid-write.
func (s *Server) persistAuditEntry(entry *audit.AuditLog) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"domain", entry.Domain,
			"error", err,
		)
	}
}

// handleListAuditLogs returns a page of audit entries, newest first.
// Query parameters narrow the result: action, domain and path match
// exactly, since (RFC 3339) cuts off older entries, limit and offset
// page through the rest. Limit defaults to 50 and is capped at 200.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	filter, err := auditFilterFromQuery(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// auditFilterFromQuery maps list query parameters onto an audit filter.
// Unparseable limit and offset values are ignored rather than rejected,
// leaving the repository defaults in charge.
func auditFilterFromQuery(q url.Values) (audit.Filter, error) {
	filter := audit.Filter{
		Action: q.Get("action"),
		Domain: q.Get("domain"),
		Path:   q.Get("path"),
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filter{}, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.Since = t
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = n
	}

	return filter, nil
}

package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketStore holds pending WebSocket authentication tickets.
//
// Browsers cannot set an Authorization header on a WebSocket upgrade,
// so clients exchange their bearer token for a short-lived single-use
// ticket and pass it as a query parameter instead. Each ticket carries
// the identity of the token that requested it.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	subject   string
	role      auth.Role
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{
		tickets: make(map[string]ticketEntry),
	}
}

// issue creates a ticket bound to the given identity.
func (ts *ticketStore) issue(subject string, role auth.Role) string {
	ticket := generateTicket()

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{
		subject:   subject,
		role:      role,
		expiresAt: time.Now().Add(ticketTTL),
	}
	ts.mu.Unlock()

	return ticket
}

// redeem consumes a ticket (single-use) and returns the identity it was
// issued to. ok is false for unknown or expired tickets.
func (ts *ticketStore) redeem(ticket string) (subject string, role auth.Role, ok bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, found := ts.tickets[ticket]
	if !found {
		return "", "", false
	}

	delete(ts.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return "", "", false
	}
	return entry.subject, entry.role, true
}

// clean removes expired tickets from the store.
func (ts *ticketStore) clean() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket
// bound to the caller's token identity.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing authentication")
		return
	}

	ticket := s.tickets.issue(claims.Subject, claims.Role)

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// generateTicket returns 32 random bytes, hex encoded. The entropy is
// what makes the query-parameter handoff safe to appear in URLs.
func generateTicket() string {
	buf := make([]byte, 32)
	//nolint:errcheck // crypto/rand.Read cannot fail on supported platforms
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// cleanTicketsLoop removes expired tickets periodically until the context
// is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.clean()
		}
	}
}

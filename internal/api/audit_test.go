package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
	"github.com/nerrad567/gray-logic-blueprints/internal/auth"
)

// mockAuditRepo is a test implementation of audit.Repository. Created
// entries are delivered on a channel so tests can wait for the async
// writer without polling.
type mockAuditRepo struct {
	created chan *audit.AuditLog
	result  *audit.ListResult
	listErr error
	filter  audit.Filter // last filter seen by List
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{
		created: make(chan *audit.AuditLog, 16),
		result:  &audit.ListResult{Logs: []audit.AuditLog{}},
	}
}

func (m *mockAuditRepo) Create(_ context.Context, log *audit.AuditLog) error {
	m.created <- log
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.result, nil
}

// testServerWithAudit wires a mock audit repository into a test server
// and starts the async writer.
func testServerWithAudit(t *testing.T) (*Server, *mockAuditRepo) {
	t.Helper()

	srv, _ := testServer(t)

	repo := newMockAuditRepo()
	srv.auditRepo = repo
	srv.auditCh = make(chan *audit.AuditLog, auditChanSize)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.drainAuditLog(ctx)

	return srv, repo
}

// waitForAudit blocks until the async writer delivers an entry.
func waitForAudit(t *testing.T, repo *mockAuditRepo) *audit.AuditLog {
	t.Helper()

	select {
	case entry := <-repo.created:
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit entry")
		return nil
	}
}

// ─── Mutation Audit Tests ──────────────────────────────────────────

func TestAudit_BlueprintAdd(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	addBlueprint(t, router, "/api/v1/blueprints/automation/motion_light")

	entry := waitForAudit(t, repo)
	if entry.Action != audit.ActionBlueprintAdd {
		t.Errorf("action = %q, want %q", entry.Action, audit.ActionBlueprintAdd)
	}
	if entry.Domain != "automation" {
		t.Errorf("domain = %q, want automation", entry.Domain)
	}
	if entry.Path != "motion_light.yaml" {
		t.Errorf("path = %q, want motion_light.yaml", entry.Path)
	}
	if entry.Actor != "test-user" {
		t.Errorf("actor = %q, want test-user", entry.Actor)
	}
	if entry.Source != audit.SourceAPI {
		t.Errorf("source = %q, want %q", entry.Source, audit.SourceAPI)
	}
	if entry.Details["name"] != "Motion Light" {
		t.Errorf("details.name = %v, want Motion Light", entry.Details["name"])
	}
}

func TestAudit_BlueprintRemove(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	path := addBlueprint(t, router, "/api/v1/blueprints/automation/motion_light")
	waitForAudit(t, repo) // consume the add entry

	req := authedRequest(t, http.MethodDelete, "/api/v1/blueprints/automation/"+path, nil, auth.RoleEditor)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d; body: %s", w.Code, w.Body.String())
	}

	entry := waitForAudit(t, repo)
	if entry.Action != audit.ActionBlueprintRemove {
		t.Errorf("action = %q, want %q", entry.Action, audit.ActionBlueprintRemove)
	}
	if entry.Path != path {
		t.Errorf("path = %q, want %q", entry.Path, path)
	}
}

func TestAudit_CacheReset(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	req := authedRequest(t, http.MethodPost, "/api/v1/blueprints/automation/cache/reset", nil, auth.RoleEditor)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d; body: %s", w.Code, w.Body.String())
	}

	entry := waitForAudit(t, repo)
	if entry.Action != audit.ActionCacheReset {
		t.Errorf("action = %q, want %q", entry.Action, audit.ActionCacheReset)
	}
	if entry.Domain != "automation" {
		t.Errorf("domain = %q, want automation", entry.Domain)
	}
}

func TestAudit_ReadsAreNotAudited(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	path := addBlueprint(t, router, "/api/v1/blueprints/automation/motion_light")
	waitForAudit(t, repo)

	// Reads and instantiations leave no trail.
	for _, target := range []string{
		"/api/v1/blueprints/automation/",
		"/api/v1/blueprints/automation/" + path,
	} {
		req := authedRequest(t, http.MethodGet, target, nil, auth.RoleViewer)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", target, w.Code)
		}
	}

	body := `{"use_blueprint": {"path": "` + path + `", "input": {
		"motion_sensor": "binary_sensor.hall", "target_light": "light.hall"}}}`
	req := authedRequest(t, http.MethodPost, "/api/v1/blueprints/automation/instantiate",
		strings.NewReader(body), auth.RoleViewer)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("instantiate status = %d; body: %s", w.Code, w.Body.String())
	}

	select {
	case entry := <-repo.created:
		t.Errorf("unexpected audit entry for read path: %+v", entry)
	case <-time.After(100 * time.Millisecond):
		// Nothing written within the window, which is the point.
	}
}

// ─── Audit Listing Tests ───────────────────────────────────────────

func TestListAuditLogs(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	repo.result = &audit.ListResult{
		Logs: []audit.AuditLog{
			{ID: "log-1", Action: audit.ActionBlueprintAdd, Domain: "automation", Source: audit.SourceAPI},
		},
		Total:  1,
		Limit:  50,
		Offset: 0,
	}

	req := authedRequest(t, http.MethodGet, "/api/v1/audit?action=blueprint.add&domain=automation&limit=10&offset=5", nil, auth.RoleViewer)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp audit.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}

	// Query parameters flow into the repository filter.
	if repo.filter.Action != "blueprint.add" {
		t.Errorf("filter.Action = %q, want blueprint.add", repo.filter.Action)
	}
	if repo.filter.Domain != "automation" {
		t.Errorf("filter.Domain = %q, want automation", repo.filter.Domain)
	}
	if repo.filter.Limit != 10 {
		t.Errorf("filter.Limit = %d, want 10", repo.filter.Limit)
	}
	if repo.filter.Offset != 5 {
		t.Errorf("filter.Offset = %d, want 5", repo.filter.Offset)
	}
}

func TestListAuditLogs_SinceFilter(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	t.Run("accepts RFC 3339", func(t *testing.T) {
		req := authedRequest(t, http.MethodGet, "/api/v1/audit?since=2026-08-01T00:00:00Z", nil, auth.RoleViewer)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		if !repo.filter.Since.Equal(want) {
			t.Errorf("filter.Since = %v, want %v", repo.filter.Since, want)
		}
	})

	t.Run("rejects other formats", func(t *testing.T) {
		req := authedRequest(t, http.MethodGet, "/api/v1/audit?since=yesterday", nil, auth.RoleViewer)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestListAuditLogs_RepoError(t *testing.T) {
	srv, repo := testServerWithAudit(t)
	router := srv.buildRouter()

	repo.listErr = errors.New("database error")

	req := authedRequest(t, http.MethodGet, "/api/v1/audit", nil, auth.RoleViewer)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestListAuditLogs_NotConfigured(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, http.MethodGet, "/api/v1/audit", nil, auth.RoleViewer)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// ─── Async Writer Tests ────────────────────────────────────────────

func TestDrainAuditLog_FlushesOnShutdown(t *testing.T) {
	srv, _ := testServer(t)

	repo := newMockAuditRepo()
	srv.auditRepo = repo
	srv.auditCh = make(chan *audit.AuditLog, auditChanSize)

	// Enqueue before the writer runs, then hand it a cancelled context:
	// buffered entries must still reach the repository.
	srv.auditMutation(audit.ActionCacheReset, "automation", "", "test-user", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		srv.drainAuditLog(ctx)
		close(done)
	}()

	entry := waitForAudit(t, repo)
	if entry.Action != audit.ActionCacheReset {
		t.Errorf("action = %q, want %q", entry.Action, audit.ActionCacheReset)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("drainAuditLog did not return after cancel")
	}
}

func TestAuditMutation_NilRepoIsNoop(t *testing.T) {
	srv, _ := testServer(t)

	// Must not panic or block without a repository.
	srv.auditMutation(audit.ActionBlueprintAdd, "automation", "x.yaml", "test-user", nil)
}

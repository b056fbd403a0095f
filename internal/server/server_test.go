package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rinko/go-arena-stats/internal/arena"
	"github.com/rinko/go-arena-stats/internal/config"
	"github.com/rinko/go-arena-stats/internal/storage"
)

const testAdminToken = "test-admin-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.AdminToken = testAdminToken
	engine := arena.New(db, arena.Config{Now: func() int64 { return 1000 }})

	srv := httptest.NewServer(New(engine, cfg, discardLogger()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(t *testing.T, url, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp, payload
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz: status %d, body %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("responses should carry a request id")
	}
}

func TestManualAddThenListSummaries(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := postJSON(t, srv.URL+"/api/manual_add", `{
		"scope": "global", "season": 1,
		"atk_team": [10017, 13009], "def_team": [10045],
		"wins": 10, "losses": 5
	}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manual_add: status %d, body %v", resp.StatusCode, payload)
	}
	if payload["added"] != float64(15) {
		t.Errorf("added: want 15, got %v", payload["added"])
	}

	var page struct {
		Data []struct {
			AtkTeam []int   `json:"attackingTeam"`
			Total   int     `json:"total"`
			Wins    int     `json:"wins"`
			WinRate float64 `json:"winRate"`
		} `json:"data"`
		Total      int `json:"total"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	}
	resp = getJSON(t, srv.URL+"/api/summaries?scope=global", &page)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summaries: status %d", resp.StatusCode)
	}
	if page.Total != 1 || page.TotalPages != 1 {
		t.Fatalf("paging: want total 1 / 1 page, got %d / %d", page.Total, page.TotalPages)
	}
	row := page.Data[0]
	if row.Total != 15 || row.Wins != 10 {
		t.Errorf("row counts: want 15/10, got %d/%d", row.Total, row.Wins)
	}
	if len(row.AtkTeam) != 2 || row.AtkTeam[0] != 10017 {
		t.Errorf("attacking team: %v", row.AtkTeam)
	}
}

func TestManualAddValidationStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := postJSON(t, srv.URL+"/api/manual_add", `{
		"scope": "global", "season": 1,
		"atk_team": [], "def_team": [1], "wins": 1
	}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty team: want 400, got %d", resp.StatusCode)
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "atk_team") {
		t.Errorf("error should name the field, got %v", payload["error"])
	}

	resp, _ = postJSON(t, srv.URL+"/api/manual_add", `not json`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: want 400, got %d", resp.StatusCode)
	}
}

func TestAdminTokenGate(t *testing.T) {
	srv := newTestServer(t)

	body := `{"scope":"global","season":1,"tag":"","atk_sig":"1","def_sig":"2"}`

	resp, _ := postJSON(t, srv.URL+"/api/summaries/delete", body, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: want 401, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/summaries/delete", body, "wrong-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: want 401, got %d", resp.StatusCode)
	}

	// With the right token the delete reaches the store and misses.
	resp, _ = postJSON(t, srv.URL+"/api/summaries/delete", body, testAdminToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("good token, unknown matchup: want 404, got %d", resp.StatusCode)
	}
}

func TestAdminEndpointsDisabledWithoutToken(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.AdminToken = ""
	engine := arena.New(db, arena.Config{})

	srv := httptest.NewServer(New(engine, cfg, discardLogger()).Handler())
	t.Cleanup(srv.Close)

	resp, _ := postJSON(t, srv.URL+"/api/import", `[]`, "anything")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("disabled admin: want 403, got %d", resp.StatusCode)
	}
}

func TestSubmissionApprovalFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := postJSON(t, srv.URL+"/api/submissions", `{
		"scope": "global", "season": 1,
		"atk_team": [1, 2], "def_team": [3],
		"wins": 4, "losses": 1, "note": "observed in ranked"
	}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: status %d, body %v", resp.StatusCode, payload)
	}
	id := int64(payload["id"].(float64))

	// The review queue is admin-only.
	listReq, _ := http.NewRequest("GET", srv.URL+"/api/submissions", nil)
	listResp, err := http.DefaultClient.Do(listReq)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	listResp.Body.Close()
	if listResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated list: want 401, got %d", listResp.StatusCode)
	}

	resp, _ = postJSON(t, fmt.Sprintf("%s/api/submissions/%d/approve", srv.URL, id), "", testAdminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: status %d", resp.StatusCode)
	}

	var page struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	getJSON(t, srv.URL+"/api/summaries?scope=global", &page)
	if page.Total != 1 {
		t.Errorf("approved submission should produce one matchup, got %d", page.Total)
	}

	// Re-approving a processed submission fails validation.
	resp, _ = postJSON(t, fmt.Sprintf("%s/api/submissions/%d/approve", srv.URL, id), "", testAdminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("double approve: want 400, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/submissions/99999/approve", "", testAdminToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing submission: want 404, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/submissions/abc/approve", "", testAdminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric id: want 400, got %d", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := postJSON(t, srv.URL+"/api/import", `[
		{"Server": "global", "Season": 1, "Win": true,
		 "AttackingTeamIds": [1, 2], "DefendingTeamIds": [3]},
		{"Server": "global", "Season": 1, "Win": false,
		 "AttackingTeamIds": [1, 2], "DefendingTeamIds": [3]}
	]`, testAdminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: status %d, body %v", resp.StatusCode, payload)
	}
	if payload["imported"] != float64(2) || payload["stats_updated"] != float64(1) {
		t.Errorf("import counts: got %v", payload)
	}

	resp, _ = postJSON(t, srv.URL+"/api/import", `{"not": "a list"}`, testAdminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-array import: want 400, got %d", resp.StatusCode)
	}
}

func TestSeasonsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/battles", `{
		"scope": "global", "season": 3,
		"atk_team": [1], "def_team": [2], "is_win": true, "timestamp": 100
	}`, "")
	postJSON(t, srv.URL+"/api/battles", `{
		"scope": "global", "season": 7,
		"atk_team": [1], "def_team": [2], "is_win": false, "timestamp": 200
	}`, "")

	var seasons []int
	resp := getJSON(t, srv.URL+"/api/seasons?scope=global", &seasons)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seasons: status %d", resp.StatusCode)
	}
	if len(seasons) != 2 || seasons[0] != 7 || seasons[1] != 3 {
		t.Errorf("seasons descending: want [7 3], got %v", seasons)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rinko/go-arena-stats/internal/arena"
	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/storage"
)

// maxImportBody bounds the bulk-import request body (32 MiB).
const maxImportBody = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the engine error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, arena.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
		return false
	}
	return true
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	q, err := parseSummaryQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, total, err := s.engine.ListSummaries(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []model.SummaryRow{}
	}

	totalPages := 0
	if q.Limit > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"total":      total,
		"page":       q.Page,
		"totalPages": totalPages,
	})
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.engine.ListSeasons(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

func (s *Server) handleIngestBattle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope     string `json:"scope"`
		Season    int    `json:"season"`
		Tag       string `json:"tag"`
		AtkTeam   []int  `json:"atk_team"`
		DefTeam   []int  `json:"def_team"`
		IsWin     bool   `json:"is_win"`
		Timestamp int64  `json:"timestamp"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.engine.IngestBattle(req.Scope, req.Season, req.Tag, req.AtkTeam, req.DefTeam, req.IsWin, req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "battle recorded"})
}

func (s *Server) handleManualAdd(w http.ResponseWriter, r *http.Request) {
	var req arena.ManualAdd
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Scope == "" {
		req.Scope = "global"
	}

	added, err := s.engine.AddManual(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "records added, stats incrementally updated",
		"added":   added,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := arena.ParseImportFile(body)
	if err != nil {
		writeError(w, err)
		return
	}

	imported, statsRows, err := s.engine.ImportBattles(records)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":      imported,
		"stats_updated": statsRows,
	})
}

func (s *Server) handleDeleteMatchup(w http.ResponseWriter, r *http.Request) {
	var key model.MatchupKey
	if !decodeBody(w, r, &key) {
		return
	}

	if err := s.engine.DeleteMatchup(key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "matchup deleted"})
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []model.MatchupKey `json:"items"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	deleted, err := s.engine.BatchDeleteMatchups(req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope   string `json:"scope"`
		Season  int    `json:"season"`
		Tag     string `json:"tag"`
		AtkTeam []int  `json:"atk_team"`
		DefTeam []int  `json:"def_team"`
		Wins    int    `json:"wins"`
		Losses  int    `json:"losses"`
		Note    string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Scope == "" {
		req.Scope = "global"
	}

	id, err := s.engine.Submit(model.Submission{
		Scope: req.Scope, Season: req.Season, Tag: req.Tag,
		AtkTeam: req.AtkTeam, DefTeam: req.DefTeam,
		Wins: req.Wins, Losses: req.Losses, Note: req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "submission received, awaiting approval",
		"id":      id,
	})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, _ *http.Request) {
	subs, err := s.engine.PendingSubmissions()
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleApproveSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := submissionID(w, r)
	if !ok {
		return
	}
	if err := s.engine.ApproveSubmission(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "submission approved"})
}

func (s *Server) handleRejectSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := submissionID(w, r)
	if !ok {
		return
	}
	if err := s.engine.RejectSubmission(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "submission rejected"})
}

func submissionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid submission id"})
		return 0, false
	}
	return id, true
}

// Package arena ties validation, the battle log, and the aggregate engines
// together behind one transport-agnostic API.
package arena

import (
	"errors"
	"time"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/storage"
	"github.com/rinko/go-arena-stats/internal/team"
)

// ErrUnauthorized is returned when the authorization gate denies a
// destructive operation.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultMaxManualCount caps wins/losses per manual entry or submission.
const DefaultMaxManualCount = 10000

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	// MaxManualCount caps the wins and losses accepted in one manual add or
	// submission.
	MaxManualCount int

	// Authorize gates destructive operations (delete, approve, reject).
	// Nil allows everything; transports wire their own check.
	Authorize func() bool

	// Now supplies wall-clock timestamps; overridable in tests.
	Now func() int64
}

// Engine is the matchup statistics engine.
type Engine struct {
	db        *storage.DB
	maxManual int
	authorize func() bool
	now       func() int64
}

// New builds an Engine over an open store.
func New(db *storage.DB, cfg Config) *Engine {
	e := &Engine{
		db:        db,
		maxManual: cfg.MaxManualCount,
		authorize: cfg.Authorize,
		now:       cfg.Now,
	}
	if e.maxManual <= 0 {
		e.maxManual = DefaultMaxManualCount
	}
	if e.authorize == nil {
		e.authorize = func() bool { return true }
	}
	if e.now == nil {
		e.now = func() int64 { return time.Now().Unix() }
	}
	return e
}

// IngestBattle records one battle outcome and updates its aggregate in the
// same transaction.
func (e *Engine) IngestBattle(scope string, season int, tag string, atkTeam, defTeam []int, isWin bool, ts int64) error {
	if err := validateMatchup(scope, season, atkTeam, defTeam); err != nil {
		return err
	}
	if ts <= 0 {
		ts = e.now()
	}

	battles := buildBattles(scope, season, tag, atkTeam, defTeam, boolCount(isWin), boolCount(!isWin), ts)
	delta := model.StatDelta{
		Scope: scope, Season: season, Tag: tag,
		AtkTeam: atkTeam, DefTeam: defTeam,
		WinsDelta: boolCount(isWin), LossesDelta: boolCount(!isWin),
		Timestamp: ts,
	}

	_, err := e.db.IngestBattles(battles, []model.StatDelta{delta})
	return err
}

// ManualAdd is a hand-entered batch of outcomes for one matchup.
type ManualAdd struct {
	Scope   string `json:"scope"`
	Season  int    `json:"season"`
	Tag     string `json:"tag"`
	AtkTeam []int  `json:"atk_team"`
	DefTeam []int  `json:"def_team"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
}

// AddManual expands a wins/losses pair into battle records stamped now and
// merges the matching delta. Returns the number of battle records added.
func (e *Engine) AddManual(req ManualAdd) (int, error) {
	if err := validateMatchup(req.Scope, req.Season, req.AtkTeam, req.DefTeam); err != nil {
		return 0, err
	}
	if err := model.ValidateCounts(req.Wins, req.Losses, e.maxManual); err != nil {
		return 0, err
	}

	now := e.now()
	battles := buildBattles(req.Scope, req.Season, req.Tag, req.AtkTeam, req.DefTeam, req.Wins, req.Losses, now)
	delta := model.StatDelta{
		Scope: req.Scope, Season: req.Season, Tag: req.Tag,
		AtkTeam: req.AtkTeam, DefTeam: req.DefTeam,
		WinsDelta: req.Wins, LossesDelta: req.Losses,
		Timestamp: now,
	}

	if _, err := e.db.IngestBattles(battles, []model.StatDelta{delta}); err != nil {
		return 0, err
	}
	return len(battles), nil
}

// ListSummaries returns one page of ranked matchup summaries plus the total
// matching count.
func (e *Engine) ListSummaries(q model.SummaryQuery) ([]model.SummaryRow, int, error) {
	return e.db.ListSummaries(q)
}

// ListSeasons returns the seasons with stored data for a scope.
func (e *Engine) ListSeasons(scope string) ([]int, error) {
	return e.db.ListSeasons(scope)
}

// RebuildStats re-derives every aggregate row from the battle log.
func (e *Engine) RebuildStats() (int, error) {
	return e.db.RebuildStats()
}

// DeleteMatchup removes one aggregate row and its battles.
func (e *Engine) DeleteMatchup(key model.MatchupKey) error {
	if !e.authorize() {
		return ErrUnauthorized
	}
	return e.db.DeleteMatchup(key)
}

// BatchDeleteMatchups removes a set of matchups, returning how many aggregate
// rows were deleted. Unknown keys count zero instead of failing.
func (e *Engine) BatchDeleteMatchups(keys []model.MatchupKey) (int, error) {
	if !e.authorize() {
		return 0, ErrUnauthorized
	}
	return e.db.BatchDeleteMatchups(keys)
}

func validateMatchup(scope string, season int, atkTeam, defTeam []int) error {
	if err := model.ValidateScope(scope); err != nil {
		return err
	}
	if err := model.ValidateSeason(season); err != nil {
		return err
	}
	return model.ValidateTeams(atkTeam, defTeam)
}

// buildBattles expands a wins/losses pair into individual battle rows, all
// stamped with the same timestamp.
func buildBattles(scope string, season int, tag string, atkTeam, defTeam []int, wins, losses int, ts int64) []model.Battle {
	atkSig, _ := team.Signatures(atkTeam)
	defSig, _ := team.Signatures(defTeam)

	battles := make([]model.Battle, 0, wins+losses)
	for i := 0; i < wins+losses; i++ {
		battles = append(battles, model.Battle{
			Scope: scope, Season: season, Tag: tag,
			Timestamp: ts, IsWin: i < wins,
			AtkTeam: atkTeam, DefTeam: defTeam,
			AtkSig: atkSig, DefSig: defSig,
		})
	}
	return battles
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// cleanTeam drops non-positive IDs, the encoding used for empty formation
// slots in submitted teams.
func cleanTeam(in []int) []int {
	out := make([]int, 0, len(in))
	for _, id := range in {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

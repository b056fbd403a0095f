package storage

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/team"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	teamA = []int{10017, 13009, 26012}
	teamB = []int{10045, 11031, 20002}
)

func delta(wins, losses int, ts int64) model.StatDelta {
	return model.StatDelta{
		Scope: "global", Season: 1, Tag: "",
		AtkTeam: teamA, DefTeam: teamB,
		WinsDelta: wins, LossesDelta: losses, Timestamp: ts,
	}
}

func keyFor(atk, def []int) model.MatchupKey {
	atkSig, _ := team.Signatures(atk)
	defSig, _ := team.Signatures(def)
	return model.MatchupKey{Scope: "global", Season: 1, Tag: "", AtkSig: atkSig, DefSig: defSig}
}

func battlesFor(wins, losses int, ts int64) []model.Battle {
	atkSig, _ := team.Signatures(teamA)
	defSig, _ := team.Signatures(teamB)
	var out []model.Battle
	for i := 0; i < wins+losses; i++ {
		out = append(out, model.Battle{
			Scope: "global", Season: 1, Timestamp: ts, IsWin: i < wins,
			AtkTeam: teamA, DefTeam: teamB, AtkSig: atkSig, DefSig: defSig,
		})
	}
	return out
}

func TestMergeCreatesRow(t *testing.T) {
	db := openMemDB(t)

	n, err := db.MergeDeltas([]model.StatDelta{delta(3, 2, 100)})
	if err != nil {
		t.Fatalf("MergeDeltas: %v", err)
	}
	if n != 1 {
		t.Errorf("touched rows: want 1, got %d", n)
	}

	m, err := db.GetMatchup(keyFor(teamA, teamB))
	if err != nil {
		t.Fatalf("GetMatchup: %v", err)
	}
	if m.TotalBattles != 5 || m.TotalWins != 3 {
		t.Errorf("counts: want 5/3, got %d/%d", m.TotalBattles, m.TotalWins)
	}
	if m.LastSeen != 100 {
		t.Errorf("last_seen: want 100, got %d", m.LastSeen)
	}
	if m.WilsonScore <= 0 || m.WilsonScore >= 1 {
		t.Errorf("wilson out of range: %f", m.WilsonScore)
	}
}

func TestMergeZeroDeltaIsNoOp(t *testing.T) {
	db := openMemDB(t)

	n, err := db.MergeDeltas([]model.StatDelta{delta(0, 0, 100)})
	if err != nil {
		t.Fatalf("MergeDeltas: %v", err)
	}
	if n != 0 {
		t.Errorf("zero delta must touch nothing, touched %d", n)
	}
	if _, err := db.GetMatchup(keyFor(teamA, teamB)); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMergeClampsWins(t *testing.T) {
	db := openMemDB(t)

	if _, err := db.MergeDeltas([]model.StatDelta{delta(3, 2, 100)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Remove more wins than exist but keep the total positive.
	if _, err := db.MergeDeltas([]model.StatDelta{delta(-4, 0, 200)}); err != nil {
		t.Fatalf("removal: %v", err)
	}

	m, err := db.GetMatchup(keyFor(teamA, teamB))
	if err != nil {
		t.Fatalf("GetMatchup: %v", err)
	}
	if m.TotalBattles != 1 || m.TotalWins != 0 {
		t.Errorf("clamp: want 1/0, got %d/%d", m.TotalBattles, m.TotalWins)
	}
}

func TestMergeLastSeenPolicy(t *testing.T) {
	db := openMemDB(t)

	db.MergeDeltas([]model.StatDelta{delta(2, 1, 100)})

	// A pure-removal delta must not advance recency.
	db.MergeDeltas([]model.StatDelta{delta(-1, 0, 500)})
	m, _ := db.GetMatchup(keyFor(teamA, teamB))
	if m.LastSeen != 100 {
		t.Errorf("removal advanced last_seen: got %d, want 100", m.LastSeen)
	}

	// A positive delta with an older timestamp must not move it backwards.
	db.MergeDeltas([]model.StatDelta{delta(1, 0, 50)})
	m, _ = db.GetMatchup(keyFor(teamA, teamB))
	if m.LastSeen != 100 {
		t.Errorf("older positive delta moved last_seen: got %d, want 100", m.LastSeen)
	}

	db.MergeDeltas([]model.StatDelta{delta(1, 0, 900)})
	m, _ = db.GetMatchup(keyFor(teamA, teamB))
	if m.LastSeen != 900 {
		t.Errorf("newer positive delta: got %d, want 900", m.LastSeen)
	}
}

func TestMergeDeletionLaw(t *testing.T) {
	db := openMemDB(t)

	db.MergeDeltas([]model.StatDelta{delta(2, 1, 100)})

	// Drive the total to exactly zero: row must vanish, not persist as zero.
	if _, err := db.MergeDeltas([]model.StatDelta{delta(-2, -1, 200)}); err != nil {
		t.Fatalf("removal: %v", err)
	}
	if _, err := db.GetMatchup(keyFor(teamA, teamB)); err != ErrNotFound {
		t.Fatalf("row should be deleted at zero total, got %v", err)
	}

	// A later positive delta recreates the row from scratch, not stale state.
	db.MergeDeltas([]model.StatDelta{delta(1, 0, 300)})
	m, err := db.GetMatchup(keyFor(teamA, teamB))
	if err != nil {
		t.Fatalf("GetMatchup after recreate: %v", err)
	}
	if m.TotalBattles != 1 || m.TotalWins != 1 || m.LastSeen != 300 {
		t.Errorf("recreated row carries stale state: %d/%d last_seen=%d", m.TotalBattles, m.TotalWins, m.LastSeen)
	}
}

// snapshotStats reads every aggregate row ordered by key.
func snapshotStats(t *testing.T, db *DB) []model.SummaryRow {
	t.Helper()
	rows, _, err := db.ListSummaries(model.SummaryQuery{Scope: model.ScopeAll, Limit: 10000})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.AtkSig != b.AtkSig {
			return a.AtkSig < b.AtkSig
		}
		return a.DefSig < b.DefSig
	})
	return rows
}

// TestMergeMatchesRebuild ingests a randomized battle sequence through the
// incremental path and asserts a full rebuild over the same log produces
// identical aggregates.
func TestMergeMatchesRebuild(t *testing.T) {
	db := openMemDB(t)
	rng := rand.New(rand.NewSource(42))

	pool := [][]int{
		{10017, 13009, 26012},
		{13009, 10017, 26012},
		{10045, 11031, 20002},
		{11031, 10045, 20002, 26009},
	}

	for i := 0; i < 200; i++ {
		atk := pool[rng.Intn(len(pool))]
		def := pool[rng.Intn(len(pool))]
		win := rng.Intn(2) == 0
		ts := int64(1000 + rng.Intn(5000))
		season := 1 + rng.Intn(2)

		atkSig, _ := team.Signatures(atk)
		defSig, _ := team.Signatures(def)
		battle := model.Battle{
			Scope: "global", Season: season, Timestamp: ts, IsWin: win,
			AtkTeam: atk, DefTeam: def, AtkSig: atkSig, DefSig: defSig,
		}
		d := model.StatDelta{
			Scope: "global", Season: season,
			AtkTeam: atk, DefTeam: def, Timestamp: ts,
		}
		if win {
			d.WinsDelta = 1
		} else {
			d.LossesDelta = 1
		}
		if _, err := db.IngestBattles([]model.Battle{battle}, []model.StatDelta{d}); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	merged := snapshotStats(t, db)

	n, err := db.RebuildStats()
	if err != nil {
		t.Fatalf("RebuildStats: %v", err)
	}
	rebuilt := snapshotStats(t, db)

	if len(merged) != len(rebuilt) || len(merged) != n {
		t.Fatalf("row counts diverge: merged=%d rebuilt=%d reported=%d", len(merged), len(rebuilt), n)
	}
	for i := range merged {
		m, r := merged[i], rebuilt[i]
		if m.AtkSig != r.AtkSig || m.DefSig != r.DefSig || m.Season != r.Season {
			t.Fatalf("row %d key diverges: %+v vs %+v", i, m, r)
		}
		if m.Total != r.Total || m.Wins != r.Wins || m.LastSeen != r.LastSeen {
			t.Errorf("row %d counts diverge: %d/%d@%d vs %d/%d@%d",
				i, m.Total, m.Wins, m.LastSeen, r.Total, r.Wins, r.LastSeen)
		}
		if math.Abs(m.WilsonScore-r.WilsonScore) > 1e-9 {
			t.Errorf("row %d wilson diverges: %f vs %f", i, m.WilsonScore, r.WilsonScore)
		}
		if math.Abs(m.PostMean-r.PostMean) > 1e-9 {
			t.Errorf("row %d posterior diverges: %f vs %f", i, m.PostMean, r.PostMean)
		}
	}
}

func TestRebuildGroupsByExactComposition(t *testing.T) {
	db := openMemDB(t)

	// Two compositions sharing a smart signature must stay separate rows:
	// rebuild groups on the exact serialized team, not the coarsened one.
	permuted := []int{10017, 26012, 13009}
	atkSig1, _ := team.Signatures(teamA)
	atkSig2, _ := team.Signatures(permuted)
	defSig, _ := team.Signatures(teamB)

	battles := []model.Battle{
		{Scope: "global", Season: 1, Timestamp: 10, IsWin: true, AtkTeam: teamA, DefTeam: teamB, AtkSig: atkSig1, DefSig: defSig},
		{Scope: "global", Season: 1, Timestamp: 20, IsWin: false, AtkTeam: permuted, DefTeam: teamB, AtkSig: atkSig2, DefSig: defSig},
	}
	if err := db.InsertBattles(battles); err != nil {
		t.Fatalf("InsertBattles: %v", err)
	}

	n, err := db.RebuildStats()
	if err != nil {
		t.Fatalf("RebuildStats: %v", err)
	}
	if n != 2 {
		t.Errorf("want 2 rebuilt rows, got %d", n)
	}
}

func TestDeleteMatchup(t *testing.T) {
	db := openMemDB(t)

	if _, err := db.IngestBattles(battlesFor(10, 5, 100), []model.StatDelta{delta(10, 5, 100)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	key := keyFor(teamA, teamB)
	if err := db.DeleteMatchup(key); err != nil {
		t.Fatalf("DeleteMatchup: %v", err)
	}
	if _, err := db.GetMatchup(key); err != ErrNotFound {
		t.Errorf("stats row should be gone, got %v", err)
	}

	// The underlying battles must be gone too: a rebuild yields nothing.
	n, err := db.RebuildStats()
	if err != nil {
		t.Fatalf("RebuildStats: %v", err)
	}
	if n != 0 {
		t.Errorf("rebuild after delete: want 0 rows, got %d", n)
	}

	if err := db.DeleteMatchup(key); err != ErrNotFound {
		t.Errorf("deleting a missing matchup: want ErrNotFound, got %v", err)
	}
}

func TestBatchDeleteReportsZeroForUnknownKeys(t *testing.T) {
	db := openMemDB(t)

	db.IngestBattles(battlesFor(1, 0, 100), []model.StatDelta{delta(1, 0, 100)})

	unknown := model.MatchupKey{Scope: "global", Season: 1, AtkSig: "1,2", DefSig: "3,4"}
	n, err := db.BatchDeleteMatchups([]model.MatchupKey{keyFor(teamA, teamB), unknown})
	if err != nil {
		t.Fatalf("BatchDeleteMatchups: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: want 1, got %d", n)
	}

	n, err = db.BatchDeleteMatchups([]model.MatchupKey{unknown})
	if err != nil {
		t.Fatalf("batch delete of unknown keys must not fail: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted count: want 0, got %d", n)
	}
}

func TestEndToEndScenario(t *testing.T) {
	db := openMemDB(t)

	if _, err := db.IngestBattles(battlesFor(10, 5, 100), []model.StatDelta{delta(10, 5, 100)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	season := 1
	rows, total, err := db.ListSummaries(model.SummaryQuery{Scope: "global", Season: &season, Limit: 20})
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want exactly one summary, got %d (total %d)", len(rows), total)
	}
	r := rows[0]
	if r.Total != 15 || r.Wins != 10 {
		t.Errorf("summary counts: want 15/10, got %d/%d", r.Total, r.Wins)
	}
	if r.WilsonScore <= 0 || r.WilsonScore >= 10.0/15.0 {
		t.Errorf("wilson must lie strictly inside (0, 10/15): got %f", r.WilsonScore)
	}

	if err := db.DeleteMatchup(keyFor(teamA, teamB)); err != nil {
		t.Fatalf("DeleteMatchup: %v", err)
	}
	_, total, err = db.ListSummaries(model.SummaryQuery{Scope: "global", Season: &season, Limit: 20})
	if err != nil {
		t.Fatalf("ListSummaries after delete: %v", err)
	}
	if total != 0 {
		t.Errorf("summaries after delete: want 0, got %d", total)
	}

	if n, _ := db.RebuildStats(); n != 0 {
		t.Errorf("rebuild after delete: want 0 rows, got %d", n)
	}
}

func TestListSeasons(t *testing.T) {
	db := openMemDB(t)

	if got, _ := db.ListSeasons("global"); len(got) != 1 || got[0] != 1 {
		t.Errorf("empty store must report [1], got %v", got)
	}

	for _, season := range []int{3, 1, 7} {
		d := delta(1, 0, 100)
		d.Season = season
		if _, err := db.MergeDeltas([]model.StatDelta{d}); err != nil {
			t.Fatalf("merge season %d: %v", season, err)
		}
	}

	got, err := db.ListSeasons("global")
	if err != nil {
		t.Fatalf("ListSeasons: %v", err)
	}
	want := []int{7, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("seasons: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("seasons: want %v, got %v", want, got)
			break
		}
	}
}

package storage

import (
	"database/sql"
	"fmt"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/scoring"
	"github.com/rinko/go-arena-stats/internal/team"
)

// MergeDeltas applies a batch of win/loss deltas to the aggregate table in
// one transaction and returns the number of rows touched. Either the whole
// batch commits or none of it does.
func (db *DB) MergeDeltas(deltas []model.StatDelta) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := ApplyDeltas(tx, deltas)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// ApplyDeltas is the incremental merge engine. It runs inside the caller's
// transaction so ingest paths can commit the battle log and the aggregate
// update together. Per delta: a zero net delta is skipped; counts are clamped
// to 0 <= wins <= total; last_seen only advances on a positive net delta; a
// matchup driven to zero total is deleted rather than stored as zero.
func ApplyDeltas(tx *sql.Tx, deltas []model.StatDelta) (int, error) {
	touched := 0

	for _, d := range deltas {
		totalDelta := d.WinsDelta + d.LossesDelta
		if totalDelta == 0 {
			continue
		}

		atkStrict, atkSmart := team.Signatures(d.AtkTeam)
		defStrict, defSmart := team.Signatures(d.DefTeam)

		var (
			curTotal, curWins int
			curLastSeen       int64
		)
		err := tx.QueryRow(`
			SELECT total_battles, total_wins, last_seen
			FROM matchup_stats
			WHERE scope = ? AND season = ? AND tag = ? AND atk_sig = ? AND def_sig = ?`,
			d.Scope, d.Season, d.Tag, atkStrict, defStrict,
		).Scan(&curTotal, &curWins, &curLastSeen)

		exists := err == nil
		if err != nil && err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup matchup %s vs %s: %w", atkStrict, defStrict, err)
		}

		newTotal := curTotal + totalDelta
		newWins := curWins + d.WinsDelta
		newLastSeen := curLastSeen
		if totalDelta > 0 && d.Timestamp > newLastSeen {
			newLastSeen = d.Timestamp
		}

		if newTotal <= 0 {
			if exists {
				_, err := tx.Exec(`
					DELETE FROM matchup_stats
					WHERE scope = ? AND season = ? AND tag = ? AND atk_sig = ? AND def_sig = ?`,
					d.Scope, d.Season, d.Tag, atkStrict, defStrict)
				if err != nil {
					return 0, fmt.Errorf("delete matchup %s vs %s: %w", atkStrict, defStrict, err)
				}
			}
			touched++
			continue
		}

		if newWins < 0 {
			newWins = 0
		}
		if newWins > newTotal {
			newWins = newTotal
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO matchup_stats(
				scope, season, tag, atk_sig, def_sig,
				atk_smart_sig, def_smart_sig, atk_team, def_team,
				total_battles, total_wins, last_seen, wilson_score, post_mean
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			d.Scope, d.Season, d.Tag, atkStrict, defStrict,
			atkSmart, defSmart, encodeTeam(d.AtkTeam), encodeTeam(d.DefTeam),
			newTotal, newWins, newLastSeen,
			scoring.WilsonLowerBound(newWins, newTotal),
			scoring.PosteriorMean(newWins, newTotal),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert matchup %s vs %s: %w", atkStrict, defStrict, err)
		}
		touched++
	}

	return touched, nil
}

// RebuildStats clears the aggregate table and re-derives every row from the
// battle log, grouping on the exact serialized team compositions. This is the
// ground truth the merge engine must stay consistent with. Returns the number
// of aggregate rows produced.
func (db *DB) RebuildStats() (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matchup_stats"); err != nil {
		return 0, fmt.Errorf("clear matchup_stats: %w", err)
	}

	rows, err := tx.Query(`
		SELECT scope, season, tag, atk_team, def_team,
		       COUNT(1), SUM(is_win), MAX(timestamp)
		FROM battles
		GROUP BY scope, season, tag, atk_team, def_team`)
	if err != nil {
		return 0, fmt.Errorf("group battles: %w", err)
	}

	type group struct {
		scope            string
		season           int
		tag              string
		atkJSON, defJSON string
		total, wins      int
		lastSeen         int64
	}
	var groups []group
	for rows.Next() {
		var g group
		if err := rows.Scan(&g.scope, &g.season, &g.tag, &g.atkJSON, &g.defJSON,
			&g.total, &g.wins, &g.lastSeen); err != nil {
			rows.Close()
			return 0, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	stmt, err := tx.Prepare(`
		INSERT INTO matchup_stats(
			scope, season, tag, atk_sig, def_sig,
			atk_smart_sig, def_smart_sig, atk_team, def_team,
			total_battles, total_wins, last_seen, wilson_score, post_mean
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, g := range groups {
		atkTeam := decodeTeam(g.atkJSON)
		defTeam := decodeTeam(g.defJSON)
		atkStrict, atkSmart := team.Signatures(atkTeam)
		defStrict, defSmart := team.Signatures(defTeam)

		_, err = stmt.Exec(
			g.scope, g.season, g.tag, atkStrict, defStrict,
			atkSmart, defSmart, g.atkJSON, g.defJSON,
			g.total, g.wins, g.lastSeen,
			scoring.WilsonLowerBound(g.wins, g.total),
			scoring.PosteriorMean(g.wins, g.total),
		)
		if err != nil {
			return 0, fmt.Errorf("insert rebuilt row %s vs %s: %w", atkStrict, defStrict, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(groups), nil
}

// GetMatchup returns one aggregate row by its full key, or ErrNotFound.
func (db *DB) GetMatchup(key model.MatchupKey) (*model.MatchupStats, error) {
	var (
		m                model.MatchupStats
		atkJSON, defJSON string
	)
	err := db.conn.QueryRow(`
		SELECT scope, season, tag, atk_sig, def_sig,
		       atk_smart_sig, def_smart_sig, atk_team, def_team,
		       total_battles, total_wins, last_seen, wilson_score, post_mean
		FROM matchup_stats
		WHERE scope = ? AND season = ? AND tag = ? AND atk_sig = ? AND def_sig = ?`,
		key.Scope, key.Season, key.Tag, key.AtkSig, key.DefSig,
	).Scan(&m.Scope, &m.Season, &m.Tag, &m.AtkSig, &m.DefSig,
		&m.AtkSmartSig, &m.DefSmartSig, &atkJSON, &defJSON,
		&m.TotalBattles, &m.TotalWins, &m.LastSeen, &m.WilsonScore, &m.PostMean)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.AtkTeam = decodeTeam(atkJSON)
	m.DefTeam = decodeTeam(defJSON)
	return &m, nil
}

// DeleteMatchup removes one aggregate row and its underlying battles in a
// single transaction. Returns ErrNotFound when neither table held the key.
func (db *DB) DeleteMatchup(key model.MatchupKey) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	n, err := deleteMatchupTx(tx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// BatchDeleteMatchups removes a set of aggregate rows and their battles in
// one transaction. Unknown keys are skipped; the returned count is the number
// of aggregate rows actually removed, which may be zero.
func (db *DB) BatchDeleteMatchups(keys []model.MatchupKey) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	deleted := 0
	for _, key := range keys {
		n, err := deleteMatchupTx(tx, key)
		if err != nil {
			return 0, err
		}
		deleted += n
	}
	return deleted, tx.Commit()
}

// deleteMatchupTx returns the number of aggregate rows removed (0 or 1).
func deleteMatchupTx(tx *sql.Tx, key model.MatchupKey) (int, error) {
	_, err := tx.Exec(`
		DELETE FROM battles
		WHERE scope = ? AND season = ? AND tag = ? AND atk_sig = ? AND def_sig = ?`,
		key.Scope, key.Season, key.Tag, key.AtkSig, key.DefSig)
	if err != nil {
		return 0, fmt.Errorf("delete battles for %s vs %s: %w", key.AtkSig, key.DefSig, err)
	}

	res, err := tx.Exec(`
		DELETE FROM matchup_stats
		WHERE scope = ? AND season = ? AND tag = ? AND atk_sig = ? AND def_sig = ?`,
		key.Scope, key.Season, key.Tag, key.AtkSig, key.DefSig)
	if err != nil {
		return 0, fmt.Errorf("delete stats for %s vs %s: %w", key.AtkSig, key.DefSig, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// IngestBattles appends battles and applies the matching deltas in one
// transaction, so the log and the aggregates move together.
func (db *DB) IngestBattles(battles []model.Battle, deltas []model.StatDelta) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := insertBattlesTx(tx, battles); err != nil {
		return 0, err
	}
	n, err := ApplyDeltas(tx, deltas)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

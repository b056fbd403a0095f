package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rinko/go-arena-stats/internal/model"
)

// insertBattleChunkSize bounds the number of rows written per transaction
// during bulk import.
const insertBattleChunkSize = 500

func encodeTeam(team []int) string {
	if team == nil {
		team = []int{}
	}
	b, _ := json.Marshal(team)
	return string(b)
}

func decodeTeam(s string) []int {
	var team []int
	if err := json.Unmarshal([]byte(s), &team); err != nil {
		return nil
	}
	return team
}

// InsertBattles appends battle records to the log in chunks, one transaction
// per chunk. Signatures must already be set on each record.
func (db *DB) InsertBattles(battles []model.Battle) error {
	for start := 0; start < len(battles); start += insertBattleChunkSize {
		end := start + insertBattleChunkSize
		if end > len(battles) {
			end = len(battles)
		}
		if err := db.insertBattleChunk(battles[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) insertBattleChunk(battles []model.Battle) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertBattlesTx(tx, battles); err != nil {
		return err
	}
	return tx.Commit()
}

func insertBattlesTx(tx *sql.Tx, battles []model.Battle) error {
	stmt, err := tx.Prepare(`
		INSERT INTO battles(scope, season, tag, timestamp, is_win, atk_sig, def_sig, atk_team, def_team)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range battles {
		_, err = stmt.Exec(
			b.Scope, b.Season, b.Tag, b.Timestamp, boolInt(b.IsWin),
			b.AtkSig, b.DefSig, encodeTeam(b.AtkTeam), encodeTeam(b.DefTeam),
		)
		if err != nil {
			return fmt.Errorf("insert battle %s vs %s: %w", b.AtkSig, b.DefSig, err)
		}
	}
	return nil
}

// CountBattles returns the number of logged battles.
func (db *DB) CountBattles() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM battles").Scan(&n)
	return n, err
}

// ListSeasons returns the distinct seasons with stored aggregates for a
// scope, newest first. Scope "all" spans every scope. An empty store reports
// season 1 so callers always have a current season to show.
func (db *DB) ListSeasons(scope string) ([]int, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if scope == "" || scope == model.ScopeAll {
		rows, err = db.conn.Query("SELECT DISTINCT season FROM matchup_stats ORDER BY season DESC")
	} else {
		rows, err = db.conn.Query("SELECT DISTINCT season FROM matchup_stats WHERE scope = ? ORDER BY season DESC", scope)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		seasons = []int{1}
	}
	return seasons, nil
}

package storage

import (
	"database/sql"
	"fmt"

	"github.com/rinko/go-arena-stats/internal/model"
)

// InsertSubmission queues a pending contribution and returns its id.
func (db *DB) InsertSubmission(s model.Submission) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO submissions(scope, season, tag, atk_team, def_team, wins, losses, note, status, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.Scope, s.Season, s.Tag, encodeTeam(s.AtkTeam), encodeTeam(s.DefTeam),
		s.Wins, s.Losses, s.Note, string(model.SubmissionPending), s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return res.LastInsertId()
}

// GetSubmission returns one submission by id, or ErrNotFound.
func (db *DB) GetSubmission(id int64) (*model.Submission, error) {
	var (
		s                model.Submission
		atkJSON, defJSON string
		status           string
	)
	err := db.conn.QueryRow(`
		SELECT id, scope, season, tag, atk_team, def_team, wins, losses, note, status, created_at
		FROM submissions WHERE id = ?`, id,
	).Scan(&s.ID, &s.Scope, &s.Season, &s.Tag, &atkJSON, &defJSON,
		&s.Wins, &s.Losses, &s.Note, &status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.AtkTeam = decodeTeam(atkJSON)
	s.DefTeam = decodeTeam(defJSON)
	s.Status = model.SubmissionStatus(status)
	return &s, nil
}

// ListSubmissions returns submissions with the given status, newest first.
func (db *DB) ListSubmissions(status model.SubmissionStatus) ([]model.Submission, error) {
	rows, err := db.conn.Query(`
		SELECT id, scope, season, tag, atk_team, def_team, wins, losses, note, status, created_at
		FROM submissions WHERE status = ? ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			s                model.Submission
			atkJSON, defJSON string
			st               string
		)
		if err := rows.Scan(&s.ID, &s.Scope, &s.Season, &s.Tag, &atkJSON, &defJSON,
			&s.Wins, &s.Losses, &s.Note, &st, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.AtkTeam = decodeTeam(atkJSON)
		s.DefTeam = decodeTeam(defJSON)
		s.Status = model.SubmissionStatus(st)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ResolveSubmission marks a pending submission approved or rejected. On
// approval the battles and deltas derived from it are committed in the same
// transaction, so a crash cannot approve without counting (or vice versa).
func (db *DB) ResolveSubmission(id int64, status model.SubmissionStatus, battles []model.Battle, deltas []model.StatDelta) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE submissions SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(model.SubmissionPending))
	if err != nil {
		return fmt.Errorf("update submission %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if len(battles) > 0 {
		if err := insertBattlesTx(tx, battles); err != nil {
			return err
		}
	}
	if len(deltas) > 0 {
		if _, err := ApplyDeltas(tx, deltas); err != nil {
			return err
		}
	}
	return tx.Commit()
}

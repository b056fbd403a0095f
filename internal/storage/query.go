package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/scoring"
)

// SQL fragments for the derived ranking values. In smart-grouped mode the
// scores must come from the summed counts, not the per-row columns: applying
// them per row before grouping under-counts the group.
const (
	exactWinRateSQL = "(CAST(total_wins AS REAL) / total_battles)"
	smartTotalSQL   = "SUM(total_battles)"
	smartWinsSQL    = "CAST(SUM(total_wins) AS REAL)"
)

func smartWinRateSQL() string {
	return fmt.Sprintf("(%s / %s)", smartWinsSQL, smartTotalSQL)
}

// smartWilsonSQL is the Wilson lower bound (z = 1.96) over the summed group
// counts, used as the composite sort key in smart-grouped mode. SUM of
// total_battles is always >= 1 because zero-total rows are never stored.
func smartWilsonSQL() string {
	p := smartWinRateSQL()
	n := smartTotalSQL
	return fmt.Sprintf(
		"((%s + 3.8416/(2*%s) - 1.96*sqrt((%s*(1-%s) + 3.8416/(4*%s))/%s)) / (1 + 3.8416/%s))",
		p, n, p, p, n, n, n)
}

// ListSummaries compiles the query described by q and returns one result page
// plus the total number of matching rows (or groups) before pagination.
func (db *DB) ListSummaries(q model.SummaryQuery) ([]model.SummaryRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	preds := compilePredicates(q)

	if q.SmartGroup {
		return db.listSmart(q, preds)
	}
	return db.listExact(q, preds)
}

// compilePredicates builds the row-level filter set shared by both modes.
// Threshold filters are excluded here: in smart mode they belong in HAVING.
func compilePredicates(q model.SummaryQuery) sq.And {
	preds := sq.And{}

	if q.Scope != "" && q.Scope != model.ScopeAll {
		preds = append(preds, sq.Eq{"scope": q.Scope})
	}
	if q.Season != nil {
		preds = append(preds, sq.Eq{"season": *q.Season})
	}
	if q.Tag != nil {
		preds = append(preds, sq.Eq{"tag": *q.Tag})
	}

	for _, id := range q.AtkContains {
		preds = append(preds, sq.Expr(
			"EXISTS (SELECT 1 FROM json_each(atk_team) WHERE json_each.value = ?)", id))
	}
	for _, id := range q.DefContains {
		preds = append(preds, sq.Expr(
			"EXISTS (SELECT 1 FROM json_each(def_team) WHERE json_each.value = ?)", id))
	}

	for slot, id := range q.AtkSlots {
		preds = append(preds, sq.Expr(
			fmt.Sprintf("json_extract(atk_team, '$[%d]') = ?", slot), id))
	}
	for slot, id := range q.DefSlots {
		preds = append(preds, sq.Expr(
			fmt.Sprintf("json_extract(def_team, '$[%d]') = ?", slot), id))
	}

	return preds
}

func sortDirection(sort string) string {
	if strings.Contains(strings.ToLower(sort), "asc") {
		return "ASC"
	}
	return "DESC"
}

func exactOrder(sort string) string {
	dir := sortDirection(sort)
	switch {
	case sort == model.SortNewest || sort == model.SortNewest+"_asc":
		return "last_seen " + dir
	case strings.Contains(sort, model.SortWinRate):
		return exactWinRateSQL + " " + dir
	case strings.HasPrefix(sort, model.SortComposite):
		return "wilson_score " + dir
	default:
		return "total_battles " + dir
	}
}

func smartOrder(sort string) string {
	dir := sortDirection(sort)
	switch {
	case sort == model.SortNewest || sort == model.SortNewest+"_asc":
		return "MAX(last_seen) " + dir
	case strings.Contains(sort, model.SortWinRate):
		return smartWinRateSQL() + " " + dir
	case strings.HasPrefix(sort, model.SortComposite):
		return smartWilsonSQL() + " " + dir
	default:
		return smartTotalSQL + " " + dir
	}
}

func (db *DB) listExact(q model.SummaryQuery, preds sq.And) ([]model.SummaryRow, int, error) {
	if q.MinBattles != nil {
		preds = append(preds, sq.GtOrEq{"total_battles": *q.MinBattles})
	}
	if q.MinWinRate != nil {
		preds = append(preds, sq.Expr(exactWinRateSQL+" >= ?", *q.MinWinRate))
	}

	countSQL, countArgs, err := sq.Select("COUNT(*)").From("matchup_stats").Where(preds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := db.conn.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count summaries: %w", err)
	}

	query := sq.Select(
		"scope", "season", "tag", "atk_sig", "def_sig",
		"atk_team", "def_team",
		"total_battles", "total_wins", "last_seen",
		"wilson_score", "post_mean",
	).From("matchup_stats").
		Where(preds).
		OrderBy(exactOrder(q.Sort)).
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build summary query: %w", err)
	}

	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []model.SummaryRow
	for rows.Next() {
		var (
			r                model.SummaryRow
			atkJSON, defJSON string
		)
		if err := rows.Scan(&r.Scope, &r.Season, &r.Tag, &r.AtkSig, &r.DefSig,
			&atkJSON, &defJSON,
			&r.Total, &r.Wins, &r.LastSeen,
			&r.WilsonScore, &r.PostMean); err != nil {
			return nil, 0, err
		}
		finishRow(&r, atkJSON, defJSON)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (db *DB) listSmart(q model.SummaryQuery, preds sq.And) ([]model.SummaryRow, int, error) {
	query := sq.Select(
		"scope", "season", "tag",
		"atk_smart_sig AS atk_sig", "def_smart_sig AS def_sig",
		"MAX(atk_team) AS atk_team", "MAX(def_team) AS def_team",
		"SUM(total_battles) AS total", "SUM(total_wins) AS wins",
		"MAX(last_seen) AS last_seen",
	).From("matchup_stats").
		Where(preds).
		GroupBy("scope", "season", "tag", "atk_smart_sig", "def_smart_sig")

	// Threshold filters apply to the summed group values, never to the
	// individual rows feeding the group.
	if q.MinBattles != nil {
		query = query.Having(sq.Expr(smartTotalSQL+" >= ?", *q.MinBattles))
	}
	if q.MinWinRate != nil {
		query = query.Having(sq.Expr(smartWinRateSQL()+" >= ?", *q.MinWinRate))
	}

	innerSQL, innerArgs, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build group query: %w", err)
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", innerSQL)
	var total int
	if err := db.conn.QueryRow(countSQL, innerArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	sqlStr, args, err := query.
		OrderBy(smartOrder(q.Sort)).
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build group page query: %w", err)
	}

	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var out []model.SummaryRow
	for rows.Next() {
		var (
			r                model.SummaryRow
			atkJSON, defJSON string
		)
		if err := rows.Scan(&r.Scope, &r.Season, &r.Tag, &r.AtkSig, &r.DefSig,
			&atkJSON, &defJSON,
			&r.Total, &r.Wins, &r.LastSeen); err != nil {
			return nil, 0, err
		}
		// Scores come from the summed counts; per-row stored scores do not
		// aggregate meaningfully.
		r.WilsonScore = scoring.WilsonLowerBound(r.Wins, r.Total)
		r.PostMean = scoring.PosteriorMean(r.Wins, r.Total)
		finishRow(&r, atkJSON, defJSON)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func finishRow(r *model.SummaryRow, atkJSON, defJSON string) {
	r.AtkTeam = decodeTeam(atkJSON)
	r.DefTeam = decodeTeam(defJSON)
	r.Losses = r.Total - r.Wins
	if r.Total > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Total)
	}
}

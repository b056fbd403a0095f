package arena

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/team"
)

// Bulk-import defaults applied to records that omit the field.
const (
	importDefaultScope  = "global"
	importDefaultSeason = 9
)

// ImportRecord is one row of a bulk-import file. Field names follow the
// export format of the companion battle logger.
type ImportRecord struct {
	Scope   string `json:"Server"`
	Season  int    `json:"Season"`
	Tag     string `json:"Tag"`
	Win     bool   `json:"Win"`
	Time    string `json:"Time"` // RFC 3339; empty means "now"
	AtkTeam []int  `json:"AttackingTeamIds"`
	DefTeam []int  `json:"DefendingTeamIds"`
}

// ImportBattles bulk-loads records into the battle log and then rebuilds the
// aggregate table from scratch. Records with an empty team are skipped rather
// than failing the batch. Returns the number of battles imported and the
// number of aggregate rows produced.
func (e *Engine) ImportBattles(records []ImportRecord) (int, int, error) {
	battles := make([]model.Battle, 0, len(records))
	for _, rec := range records {
		if len(rec.AtkTeam) == 0 || len(rec.DefTeam) == 0 {
			continue
		}
		scope := rec.Scope
		if scope == "" {
			scope = importDefaultScope
		}
		season := rec.Season
		if season <= 0 {
			season = importDefaultSeason
		}

		ts := e.now()
		if rec.Time != "" {
			if t, err := time.Parse(time.RFC3339, rec.Time); err == nil {
				ts = t.Unix()
			}
		}

		atkSig, _ := team.Signatures(rec.AtkTeam)
		defSig, _ := team.Signatures(rec.DefTeam)
		battles = append(battles, model.Battle{
			Scope: scope, Season: season, Tag: rec.Tag,
			Timestamp: ts, IsWin: rec.Win,
			AtkTeam: rec.AtkTeam, DefTeam: rec.DefTeam,
			AtkSig: atkSig, DefSig: defSig,
		})
	}

	if len(battles) == 0 {
		return 0, 0, nil
	}
	if err := e.db.InsertBattles(battles); err != nil {
		return 0, 0, fmt.Errorf("import battles: %w", err)
	}
	statsRows, err := e.db.RebuildStats()
	if err != nil {
		return len(battles), 0, fmt.Errorf("rebuild stats: %w", err)
	}
	return len(battles), statsRows, nil
}

// ParseImportFile decodes a bulk-import JSON document, which must be an
// array of records.
func ParseImportFile(data []byte) ([]ImportRecord, error) {
	var records []ImportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &model.ValidationError{Field: "file", Reason: "JSON must be a list of records"}
	}
	return records, nil
}

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rinko/go-arena-stats/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parseSummaryQuery maps URL query parameters onto a SummaryQuery.
// List-valued filters use comma separation ("1,2,3"); slot filters use
// "slot:unit" pairs ("0:10017,3:26009").
func parseSummaryQuery(r *http.Request) (model.SummaryQuery, error) {
	v := r.URL.Query()
	q := model.SummaryQuery{
		Page:  intParam(v.Get("page"), 1),
		Limit: intParam(v.Get("limit"), defaultPageSize),
		Scope: v.Get("scope"),
		Sort:  v.Get("sort"),
	}
	if q.Scope == "" {
		q.Scope = "global"
	}
	if q.Sort == "" {
		q.Sort = model.SortDefault
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	if s := v.Get("season"); s != "" {
		season, err := strconv.Atoi(s)
		if err != nil {
			return q, &model.ValidationError{Field: "season", Reason: "must be an integer"}
		}
		q.Season = &season
	}
	if v.Has("tag") {
		tag := v.Get("tag")
		q.Tag = &tag
	}
	if s := v.Get("min_battles"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, &model.ValidationError{Field: "min_battles", Reason: "must be an integer"}
		}
		q.MinBattles = &n
	}
	if s := v.Get("min_win_rate"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, &model.ValidationError{Field: "min_win_rate", Reason: "must be a number"}
		}
		q.MinWinRate = &f
	}

	var err error
	if q.AtkContains, err = parseIDList(v.Get("atk_contains")); err != nil {
		return q, &model.ValidationError{Field: "atk_contains", Reason: "must be comma-separated unit IDs"}
	}
	if q.DefContains, err = parseIDList(v.Get("def_contains")); err != nil {
		return q, &model.ValidationError{Field: "def_contains", Reason: "must be comma-separated unit IDs"}
	}
	if q.AtkSlots, err = parseSlotList(v.Get("atk_slots")); err != nil {
		return q, &model.ValidationError{Field: "atk_slots", Reason: "must be slot:unit pairs"}
	}
	if q.DefSlots, err = parseSlotList(v.Get("def_slots")); err != nil {
		return q, &model.ValidationError{Field: "def_slots", Reason: "must be slot:unit pairs"}
	}

	q.SmartGroup = v.Get("ignore_specials") == "true" || v.Get("smart") == "true"
	return q, nil
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func parseIDList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseSlotList(s string) (map[int]int, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[int]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		slot, unit, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		si, err := strconv.Atoi(strings.TrimSpace(slot))
		if err != nil {
			return nil, err
		}
		ui, err := strconv.Atoi(strings.TrimSpace(unit))
		if err != nil {
			return nil, err
		}
		out[si] = ui
	}
	return out, nil
}

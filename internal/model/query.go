package model

// Sort keys accepted by ListSummaries. Each has an "_asc" variant; the bare
// form sorts descending.
const (
	SortDefault   = "default"   // total battles
	SortNewest    = "newest"    // most recent battle
	SortWinRate   = "win_rate"  // wins / total
	SortComposite = "composite" // Wilson lower bound
)

// ScopeAll disables scope filtering.
const ScopeAll = "all"

// SummaryQuery describes one filtered, sorted, paginated view over the
// matchup aggregates. All filters are optional and AND-combined; nil pointers
// mean "no constraint".
type SummaryQuery struct {
	Page  int
	Limit int

	Scope  string
	Season *int
	Tag    *string

	// AtkContains/DefContains require every listed unit to appear somewhere
	// in the team. AtkSlots/DefSlots pin a unit to a formation slot.
	AtkContains []int
	DefContains []int
	AtkSlots    map[int]int
	DefSlots    map[int]int

	MinBattles *int
	MinWinRate *float64

	Sort string

	// SmartGroup re-aggregates rows by smart signature pair, summing counts
	// across each group. Threshold filters then apply to the summed values.
	SmartGroup bool
}

// SummaryRow is one ranked result row. In smart-grouped mode the counts are
// sums over the group and the scores are recomputed from those sums; the team
// lists then show one representative composition of the group.
type SummaryRow struct {
	Scope  string `json:"scope"`
	Season int    `json:"season"`
	Tag    string `json:"tag"`
	AtkSig string `json:"atk_sig"`
	DefSig string `json:"def_sig"`

	AtkTeam []int `json:"attackingTeam"`
	DefTeam []int `json:"defendingTeam"`

	Total    int   `json:"total"`
	Wins     int   `json:"wins"`
	Losses   int   `json:"losses"`
	LastSeen int64 `json:"lastSeen"`

	WinRate     float64 `json:"winRate"`
	WilsonScore float64 `json:"wilsonScore"`
	PostMean    float64 `json:"avgWinRate"`
}

package model

// Battle is one recorded contest: an attacking team against a defending team
// with a win/loss outcome. Battles are append-only; they are only ever removed
// as part of deleting a whole matchup.
type Battle struct {
	ID        int64
	Scope     string
	Season    int
	Tag       string
	Timestamp int64 // unix seconds
	IsWin     bool
	AtkTeam   []int
	DefTeam   []int
	AtkSig    string // strict signature of AtkTeam
	DefSig    string // strict signature of DefTeam
}

// MatchupStats is the stored aggregate for all battles sharing one strict
// signature key (scope, season, tag, atk_sig, def_sig). A row with
// TotalBattles <= 0 is never stored; it is deleted instead.
type MatchupStats struct {
	Scope       string
	Season      int
	Tag         string
	AtkSig      string
	DefSig      string
	AtkSmartSig string
	DefSmartSig string
	AtkTeam     []int
	DefTeam     []int

	TotalBattles int
	TotalWins    int
	LastSeen     int64

	WilsonScore float64
	PostMean    float64
}

// StatDelta is one increment applied to a matchup aggregate. Negative deltas
// remove previously counted battles.
type StatDelta struct {
	Scope       string
	Season      int
	Tag         string
	AtkTeam     []int
	DefTeam     []int
	WinsDelta   int
	LossesDelta int
	Timestamp   int64
}

// SubmissionStatus is the lifecycle state of a user-submitted record batch.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is an unreviewed batch of wins/losses for one matchup. Approval
// turns it into battles plus a merge delta; rejection discards it.
type Submission struct {
	ID        int64
	Scope     string
	Season    int
	Tag       string
	AtkTeam   []int
	DefTeam   []int
	Wins      int
	Losses    int
	Note      string
	Status    SubmissionStatus
	CreatedAt int64
}

// MatchupKey identifies one aggregate row for deletion.
type MatchupKey struct {
	Scope  string `json:"scope"`
	Season int    `json:"season"`
	Tag    string `json:"tag"`
	AtkSig string `json:"atk_sig"`
	DefSig string `json:"def_sig"`
}

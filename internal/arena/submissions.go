package arena

import (
	"github.com/rinko/go-arena-stats/internal/model"
)

// Submit queues a pending contribution for review. Empty formation slots may
// be encoded as non-positive IDs; they are stripped before validation.
func (e *Engine) Submit(s model.Submission) (int64, error) {
	s.AtkTeam = cleanTeam(s.AtkTeam)
	s.DefTeam = cleanTeam(s.DefTeam)

	if err := validateMatchup(s.Scope, s.Season, s.AtkTeam, s.DefTeam); err != nil {
		return 0, err
	}
	if err := model.ValidateCounts(s.Wins, s.Losses, e.maxManual); err != nil {
		return 0, err
	}

	s.Status = model.SubmissionPending
	if s.CreatedAt == 0 {
		s.CreatedAt = e.now()
	}
	return e.db.InsertSubmission(s)
}

// PendingSubmissions lists the review queue, newest first.
func (e *Engine) PendingSubmissions() ([]model.Submission, error) {
	if !e.authorize() {
		return nil, ErrUnauthorized
	}
	return e.db.ListSubmissions(model.SubmissionPending)
}

// ApproveSubmission converts a pending contribution into battle records plus
// a merge delta, all in one transaction. A missing id reports ErrNotFound; an
// already-processed one is rejected before any write.
func (e *Engine) ApproveSubmission(id int64) error {
	if !e.authorize() {
		return ErrUnauthorized
	}

	sub, err := e.db.GetSubmission(id)
	if err != nil {
		return err
	}
	if sub.Status != model.SubmissionPending {
		return &model.ValidationError{Field: "submission", Reason: "already processed"}
	}

	now := e.now()
	battles := buildBattles(sub.Scope, sub.Season, sub.Tag, sub.AtkTeam, sub.DefTeam, sub.Wins, sub.Losses, now)
	delta := model.StatDelta{
		Scope: sub.Scope, Season: sub.Season, Tag: sub.Tag,
		AtkTeam: sub.AtkTeam, DefTeam: sub.DefTeam,
		WinsDelta: sub.Wins, LossesDelta: sub.Losses,
		Timestamp: now,
	}

	return e.db.ResolveSubmission(id, model.SubmissionApproved, battles, []model.StatDelta{delta})
}

// RejectSubmission discards a pending contribution.
func (e *Engine) RejectSubmission(id int64) error {
	if !e.authorize() {
		return ErrUnauthorized
	}
	return e.db.ResolveSubmission(id, model.SubmissionRejected, nil, nil)
}

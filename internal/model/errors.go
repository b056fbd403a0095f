package model

import "fmt"

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ValidateTeams checks both team lists are non-empty.
func ValidateTeams(atk, def []int) error {
	if len(atk) == 0 {
		return invalid("atk_team", "team must not be empty")
	}
	if len(def) == 0 {
		return invalid("def_team", "team must not be empty")
	}
	return nil
}

// ValidateCounts checks a manual wins/losses pair against the configured
// per-request ceiling.
func ValidateCounts(wins, losses, maxCount int) error {
	if wins < 0 || losses < 0 {
		return invalid("counts", "wins and losses cannot be negative")
	}
	if wins == 0 && losses == 0 {
		return invalid("counts", "at least one win or loss is required")
	}
	if wins > maxCount || losses > maxCount {
		return invalid("counts", fmt.Sprintf("wins and losses must each be at most %d", maxCount))
	}
	return nil
}

// ValidateSeason checks the season is positive.
func ValidateSeason(season int) error {
	if season < 1 {
		return invalid("season", "season must be a positive integer")
	}
	return nil
}

// ValidateScope checks the scope identifier is present.
func ValidateScope(scope string) error {
	if scope == "" {
		return invalid("scope", "scope must not be empty")
	}
	return nil
}

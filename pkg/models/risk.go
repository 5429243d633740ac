package models

// RiskLevel is the match-time verdict written onto an order.
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "HIGH"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelLow    RiskLevel = "LOW"
	// RiskLevelNone selects checked orders that did not match. It is never
	// stored; clean scans persist LOW with is_blacklisted false.
	RiskLevelNone RiskLevel = "NONE"
)

// RiskLevels lists the verdicts a scan can produce, most severe first.
var RiskLevels = []RiskLevel{RiskLevelHigh, RiskLevelMedium, RiskLevelLow}

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLevelHigh, RiskLevelMedium, RiskLevelLow, RiskLevelNone:
		return true
	}
	return false
}

// Severity orders risk levels; higher is worse.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	}
	return 0
}

// MatchType names the field that produced a positive match.
type MatchType string

const (
	MatchTypePhone   MatchType = "phone"
	MatchTypeName    MatchType = "name"
	MatchTypeAddress MatchType = "address"
)

// Risk is the tier implied by the field that matched.
func (m MatchType) Risk() RiskLevel {
	switch m {
	case MatchTypePhone:
		return RiskLevelHigh
	case MatchTypeName:
		return RiskLevelMedium
	}
	return RiskLevelLow
}

// EntryTier is the static tier an operator assigns to a blacklist entry.
// It is independent of the match-time RiskLevel.
type EntryTier string

const (
	EntryTierLow    EntryTier = "low"
	EntryTierMedium EntryTier = "medium"
	EntryTierHigh   EntryTier = "high"
)

package models

// MatchResult is the outcome of comparing one order with one blacklist entry.
type MatchResult struct {
	BlacklistID int64     `json:"blacklist_id"`
	IsMatch     bool      `json:"is_match"`
	MatchType   MatchType `json:"match_type,omitempty"`
	Score       float64   `json:"score"`
	Detail      string    `json:"detail"`
	Risk        RiskLevel `json:"risk"`
}

// ScanResult aggregates every positive match for one order.
type ScanResult struct {
	IsBlacklisted bool          `json:"is_blacklisted"`
	Risk          RiskLevel     `json:"risk"`
	Matches       []MatchResult `json:"matches"`
	MatchCount    int           `json:"match_count"`
}

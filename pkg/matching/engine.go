// Package matching implements blacklist matching and risk scoring
package matching

import (
	"errors"
	"sort"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// ErrNilSnapshot is returned when a scan is attempted without a blacklist snapshot.
var ErrNilSnapshot = errors.New("matching: nil blacklist snapshot")

// Config contains the acceptance threshold of each field matcher
type Config struct {
	PhoneThreshold   float64 // default 0.90
	NameThreshold    float64 // default 0.80
	AddressThreshold float64 // default 0.70
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		PhoneThreshold:   0.90,
		NameThreshold:    0.80,
		AddressThreshold: 0.70,
	}
}

// Engine scans orders against a blacklist snapshot. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	phone   FieldMatcher
	name    FieldMatcher
	address FieldMatcher
	config  Config
}

// NewEngine creates a new match engine
func NewEngine(config Config) *Engine {
	return &Engine{
		phone:   NewPhoneMatcher(config.PhoneThreshold),
		name:    NewNameMatcher(config.NameThreshold),
		address: NewAddressMatcher(config.AddressThreshold),
		config:  config,
	}
}

func (e *Engine) Config() Config {
	return e.config
}

// MatchEntry compares one order with one blacklist entry. Phone, name and
// address are tried in that order and the first positive wins, so an entry
// yields at most one explanation. A miss is reported as a LOW placeholder
// with IsMatch false.
func (e *Engine) MatchEntry(order models.OrderView, entry models.BlacklistEntry) models.MatchResult {
	checks := []struct {
		matcher  FieldMatcher
		value    *string
		variants []string
	}{
		{e.phone, order.ContactPhone, entry.PhoneVariants()},
		{e.name, order.OrdererName, entry.NameVariants()},
		{e.address, order.DetailedAddress, entry.AddressVariants()},
	}

	for _, check := range checks {
		match := check.matcher.Match(check.value, check.variants)
		if !match.Matched {
			continue
		}
		matchType := check.matcher.Type()
		return models.MatchResult{
			BlacklistID: entry.ID,
			IsMatch:     true,
			MatchType:   matchType,
			Score:       match.Score,
			Detail:      match.Detail,
			Risk:        matchType.Risk(),
		}
	}

	return models.MatchResult{
		BlacklistID: entry.ID,
		Risk:        models.RiskLevelLow,
	}
}

// ScanOrder runs MatchEntry against every entry in the snapshot and folds the
// positives into one verdict. Matches are ordered HIGH first, then by score.
func (e *Engine) ScanOrder(order models.OrderView, snapshot *Snapshot) (models.ScanResult, error) {
	if snapshot == nil {
		return models.ScanResult{}, ErrNilSnapshot
	}

	matches := []models.MatchResult{}
	for _, entry := range snapshot.entries {
		result := e.MatchEntry(order, entry)
		if result.IsMatch {
			matches = append(matches, result)
		}
	}

	if len(matches) == 0 {
		return models.ScanResult{
			IsBlacklisted: false,
			Risk:          models.RiskLevelLow,
			Matches:       matches,
		}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		hi, hj := matches[i].Risk == models.RiskLevelHigh, matches[j].Risk == models.RiskLevelHigh
		if hi != hj {
			return hi
		}
		return matches[i].Score > matches[j].Score
	})

	return models.ScanResult{
		IsBlacklisted: true,
		Risk:          finalRisk(matches),
		Matches:       matches,
		MatchCount:    len(matches),
	}, nil
}

func finalRisk(matches []models.MatchResult) models.RiskLevel {
	risk := models.RiskLevelLow
	for _, m := range matches {
		if m.Risk.Severity() > risk.Severity() {
			risk = m.Risk
		}
	}
	return risk
}

package matching

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// FieldMatch is the verdict of one field matcher.
type FieldMatch struct {
	Matched bool
	Score   float64
	Detail  string
}

// FieldMatcher compares one order-side value with the blacklist-side variants
// of the same field. A nil order value carries no signal and never matches.
type FieldMatcher interface {
	Type() models.MatchType
	Match(orderValue *string, variants []string) FieldMatch
}

// PhoneMatcher compares every mobile number found on either side.
type PhoneMatcher struct {
	Threshold float64
}

func NewPhoneMatcher(threshold float64) *PhoneMatcher {
	return &PhoneMatcher{Threshold: threshold}
}

func (m *PhoneMatcher) Type() models.MatchType {
	return models.MatchTypePhone
}

func (m *PhoneMatcher) Match(orderValue *string, variants []string) FieldMatch {
	if orderValue == nil {
		return FieldMatch{}
	}
	orderPhones := normalizers.ExtractPhoneNumbers(*orderValue)
	if len(orderPhones) == 0 {
		return FieldMatch{}
	}

	var best FieldMatch
	for _, variant := range variants {
		for _, listed := range normalizers.ExtractPhoneNumbers(variant) {
			for _, phone := range orderPhones {
				score := Similarity(phone, listed)
				if score >= m.Threshold && score > best.Score {
					best = FieldMatch{
						Matched: true,
						Score:   score,
						Detail:  fmt.Sprintf("%s ≈ %s", phone, listed),
					}
				}
			}
		}
	}
	return best
}

// TextMatcher compares normalized free text, used for names and addresses.
type TextMatcher struct {
	Kind      models.MatchType
	Threshold float64
	Normalize func(string) string
}

func NewNameMatcher(threshold float64) *TextMatcher {
	return &TextMatcher{Kind: models.MatchTypeName, Threshold: threshold, Normalize: normalizers.NormalizeIdentityText}
}

func NewAddressMatcher(threshold float64) *TextMatcher {
	return &TextMatcher{Kind: models.MatchTypeAddress, Threshold: threshold, Normalize: normalizers.NormalizeIdentityText}
}

func (m *TextMatcher) Type() models.MatchType {
	return m.Kind
}

func (m *TextMatcher) Match(orderValue *string, variants []string) FieldMatch {
	if orderValue == nil {
		return FieldMatch{}
	}
	normalized := m.Normalize(*orderValue)
	if normalized == "" {
		return FieldMatch{}
	}

	var best FieldMatch
	for _, variant := range variants {
		candidate := m.Normalize(variant)
		if candidate == "" {
			continue
		}
		score := Similarity(normalized, candidate)
		if score >= m.Threshold && score > best.Score {
			best = FieldMatch{
				Matched: true,
				Score:   score,
				Detail:  fmt.Sprintf("%s ≈ %s", strings.TrimSpace(*orderValue), strings.TrimSpace(variant)),
			}
		}
	}
	return best
}

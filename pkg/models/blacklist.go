package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// BlacklistEntry is a registered identity with its aliases, phones and addresses.
type BlacklistEntry struct {
	ID               int64        `json:"id" db:"id"`
	ExternalID       *string      `json:"external_id,omitempty" db:"external_id"`
	PrimaryName      *string      `json:"primary_name" db:"primary_name"`
	SecondaryNames   StringList   `json:"secondary_names" db:"secondary_names"`
	SocialHandle     *string      `json:"social_handle,omitempty" db:"social_handle"`
	RawNamePhoneText *string      `json:"raw_name_phone_text" db:"raw_name_phone_text"`
	PhoneNumbers     PhoneNumbers `json:"phone_numbers" db:"phone_numbers"`
	Address1         *string      `json:"address1" db:"address1"`
	Address2         *string      `json:"address2" db:"address2"`
	ListingReason    *string      `json:"listing_reason" db:"listing_reason"`
	Tier             EntryTier    `json:"risk_tier" db:"risk_tier"`
	IsActive         bool         `json:"is_active" db:"is_active"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// NameVariants returns the non-empty name-like fields compared by the name matcher.
func (e BlacklistEntry) NameVariants() []string {
	variants := make([]string, 0, 2+len(e.SecondaryNames))
	variants = appendText(variants, e.PrimaryName)
	for _, name := range e.SecondaryNames {
		if name != "" {
			variants = append(variants, name)
		}
	}
	return appendText(variants, e.RawNamePhoneText)
}

// PhoneVariants returns the stored phone numbers compared by the phone matcher.
func (e BlacklistEntry) PhoneVariants() []string {
	return []string(e.PhoneNumbers)
}

// AddressVariants returns the up to two stored addresses.
func (e BlacklistEntry) AddressVariants() []string {
	return appendText(appendText(make([]string, 0, 2), e.Address1), e.Address2)
}

func appendText(dst []string, s *string) []string {
	if s == nil || *s == "" {
		return dst
	}
	return append(dst, *s)
}

// PhoneNumbers is always a list of digit strings in memory.
//
// Scan is a compatibility shim for legacy rows: the column has held a bare
// JSON string, JSON numbers, and plain non-JSON text. All of these are
// coerced into a list on read. Writes always store a JSON array.
type PhoneNumbers []string

func (p *PhoneNumbers) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*p = PhoneNumbers{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("PhoneNumbers.Scan: unsupported type %T", src)
	}
	*p = coercePhoneNumbers(raw)
	return nil
}

func (p PhoneNumbers) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

func (p *PhoneNumbers) UnmarshalJSON(b []byte) error {
	*p = coercePhoneNumbers(string(b))
	return nil
}

func coercePhoneNumbers(raw string) PhoneNumbers {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return PhoneNumbers{}
	}

	if !json.Valid([]byte(raw)) {
		return PhoneNumbers{raw}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return PhoneNumbers{raw}
	}

	var out PhoneNumbers
	add := func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case json.Number:
			if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
				out = append(out, strconv.FormatInt(n, 10))
			}
		}
	}

	switch t := decoded.(type) {
	case []any:
		for _, v := range t {
			add(v)
		}
	default:
		add(t)
	}

	if out == nil {
		return PhoneNumbers{}
	}
	return out
}

// NormalizePhoneList turns operator input into deduplicated digit strings.
// Text holding mobile numbers contributes each number; anything else
// contributes its digits.
func NormalizePhoneList(values []string) PhoneNumbers {
	seen := make(map[string]bool)
	out := PhoneNumbers{}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, v := range values {
		phones := normalizers.ExtractPhoneNumbers(v)
		if len(phones) == 0 {
			add(normalizers.DigitsOnly(v))
			continue
		}
		for _, phone := range phones {
			add(phone)
		}
	}
	return out
}

// StringList is a jsonb array of strings.
type StringList []string

func (l *StringList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("StringList.Scan: unsupported type %T", src)
	}

	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("StringList.Scan: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// BlacklistEntryRequest is the body for creating or replacing an entry.
type BlacklistEntryRequest struct {
	ExternalID       *string   `json:"external_id" validate:"omitempty,max=10"`
	PrimaryName      *string   `json:"primary_name" validate:"omitempty,max=100"`
	SecondaryNames   []string  `json:"secondary_names" validate:"omitempty,dive,max=100"`
	SocialHandle     *string   `json:"social_handle" validate:"omitempty,max=100"`
	RawNamePhoneText *string   `json:"raw_name_phone_text"`
	PhoneNumbers     []string  `json:"phone_numbers" validate:"omitempty,dive,max=64"`
	Address1         *string   `json:"address1"`
	Address2         *string   `json:"address2"`
	ListingReason    *string   `json:"listing_reason"`
	Tier             EntryTier `json:"risk_tier" validate:"omitempty,oneof=low medium high"`
}

// Validate checks field constraints and that the entry identifies someone.
func (r *BlacklistEntryRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}

	if isBlank(r.PrimaryName) && isBlank(r.SocialHandle) && isBlank(r.RawNamePhoneText) &&
		len(r.SecondaryNames) == 0 && len(r.PhoneNumbers) == 0 &&
		isBlank(r.Address1) && isBlank(r.Address2) {
		return fmt.Errorf("entry needs at least one name, phone number or address")
	}
	return nil
}

// ToEntry builds the stored form of the request.
func (r *BlacklistEntryRequest) ToEntry() BlacklistEntry {
	tier := r.Tier
	if tier == "" {
		tier = EntryTierMedium
	}
	secondary := StringList{}
	for _, name := range r.SecondaryNames {
		if name = strings.TrimSpace(name); name != "" {
			secondary = append(secondary, name)
		}
	}
	return BlacklistEntry{
		ExternalID:       trimmed(r.ExternalID),
		PrimaryName:      trimmed(r.PrimaryName),
		SecondaryNames:   secondary,
		SocialHandle:     trimmed(r.SocialHandle),
		RawNamePhoneText: trimmed(r.RawNamePhoneText),
		PhoneNumbers:     NormalizePhoneList(r.PhoneNumbers),
		Address1:         trimmed(r.Address1),
		Address2:         trimmed(r.Address2),
		ListingReason:    trimmed(r.ListingReason),
		Tier:             tier,
		IsActive:         true,
	}
}

// BlacklistFilter narrows blacklist listings.
type BlacklistFilter struct {
	Search          string
	Tier            EntryTier
	IncludeInactive bool
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func trimmed(s *string) *string {
	if isBlank(s) {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

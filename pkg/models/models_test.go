package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestPhoneNumbers_Scan(t *testing.T) {
	tests := []struct {
		name     string
		src      any
		expected PhoneNumbers
	}{
		{"null column", nil, PhoneNumbers{}},
		{"json array", []byte(`["13912345678","15800001111"]`), PhoneNumbers{"13912345678", "15800001111"}},
		{"legacy bare json string", []byte(`"13912345678"`), PhoneNumbers{"13912345678"}},
		{"legacy plain text", "13912345678", PhoneNumbers{"13912345678"}},
		{"legacy non json text", []byte(`139-1234-5678`), PhoneNumbers{"139-1234-5678"}},
		{"json numbers", []byte(`[13912345678, "15800001111"]`), PhoneNumbers{"13912345678", "15800001111"}},
		{"blank elements dropped", []byte(`["", " ", "13912345678", null, {}]`), PhoneNumbers{"13912345678"}},
		{"empty string", "", PhoneNumbers{}},
		{"json null", []byte(`null`), PhoneNumbers{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PhoneNumbers
			require.NoError(t, p.Scan(tt.src))
			assert.Equal(t, tt.expected, p)
		})
	}

	t.Run("unsupported type errors", func(t *testing.T) {
		var p PhoneNumbers
		assert.Error(t, p.Scan(12))
	})

	t.Run("value is always a json array", func(t *testing.T) {
		v, err := PhoneNumbers(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("[]"), v)

		v, err = PhoneNumbers{"13912345678"}.Value()
		require.NoError(t, err)
		assert.JSONEq(t, `["13912345678"]`, string(v.([]byte)))
	})

	t.Run("json decoding is tolerant too", func(t *testing.T) {
		var e BlacklistEntry
		require.NoError(t, json.Unmarshal([]byte(`{"phone_numbers":"13912345678"}`), &e))
		assert.Equal(t, PhoneNumbers{"13912345678"}, e.PhoneNumbers)
	})
}

func TestNormalizePhoneList(t *testing.T) {
	got := NormalizePhoneList([]string{
		"张三 13912345678",
		"139-1234-5678",
		"13912345678",
		"021 5555 1234",
		"",
		"无",
	})
	assert.Equal(t, PhoneNumbers{"13912345678", "02155551234"}, got)
}

func TestBlacklistEntry_Variants(t *testing.T) {
	e := BlacklistEntry{
		PrimaryName:      strPtr("张三"),
		SecondaryNames:   StringList{"小张", ""},
		RawNamePhoneText: strPtr("张三13912345678"),
		PhoneNumbers:     PhoneNumbers{"13912345678"},
		Address1:         nil,
		Address2:         strPtr("上海市"),
	}

	assert.Equal(t, []string{"张三", "小张", "张三13912345678"}, e.NameVariants())
	assert.Equal(t, []string{"13912345678"}, e.PhoneVariants())
	assert.Equal(t, []string{"上海市"}, e.AddressVariants())
	assert.Empty(t, BlacklistEntry{}.NameVariants())
}

func TestBlacklistEntryRequest(t *testing.T) {
	t.Run("requires an identifying field", func(t *testing.T) {
		req := BlacklistEntryRequest{ListingReason: strPtr("refund abuse")}
		assert.Error(t, req.Validate())
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		req := BlacklistEntryRequest{PrimaryName: strPtr("张三"), Tier: "critical"}
		assert.Error(t, req.Validate())
	})

	t.Run("builds a normalized entry", func(t *testing.T) {
		req := BlacklistEntryRequest{
			PrimaryName:    strPtr(" 张三 "),
			SecondaryNames: []string{"小张", "  "},
			PhoneNumbers:   []string{"139 1234 5678", "13912345678"},
			Address1:       strPtr("  "),
		}
		require.NoError(t, req.Validate())

		e := req.ToEntry()
		assert.Equal(t, "张三", *e.PrimaryName)
		assert.Equal(t, StringList{"小张"}, e.SecondaryNames)
		assert.Equal(t, PhoneNumbers{"13912345678"}, e.PhoneNumbers)
		assert.Nil(t, e.Address1)
		assert.Equal(t, EntryTierMedium, e.Tier)
		assert.True(t, e.IsActive)
	})
}

func TestRisk(t *testing.T) {
	assert.Equal(t, RiskLevelHigh, MatchTypePhone.Risk())
	assert.Equal(t, RiskLevelMedium, MatchTypeName.Risk())
	assert.Equal(t, RiskLevelLow, MatchTypeAddress.Risk())
	assert.Greater(t, RiskLevelHigh.Severity(), RiskLevelMedium.Severity())
	assert.Greater(t, RiskLevelMedium.Severity(), RiskLevelLow.Severity())
	assert.True(t, RiskLevelNone.Valid())
	assert.False(t, RiskLevel("SEVERE").Valid())
}

func TestRole(t *testing.T) {
	role, ok := ParseRole(" Operator ")
	require.True(t, ok)
	assert.True(t, role.Can(CapabilityDetectionRun))
	assert.False(t, role.Can(CapabilityBlacklistWrite))

	assert.True(t, RoleAdmin.Can(CapabilityBlacklistWrite))
	assert.False(t, RoleViewer.Can(CapabilityDetectionRun))

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestDetectionOutcome_Apply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	order := Order{ID: 9, Checked: false}

	DetectionOutcome{
		OrderID:       9,
		IsBlacklisted: true,
		RiskLevel:     RiskLevelHigh,
		MatchInfo:     "matched 1 blacklist entries",
		MatchDetails:  "phone: 13912345678 ≈ 13912345678",
		CheckedAt:     now,
	}.Apply(&order)

	assert.True(t, order.Checked)
	assert.True(t, order.IsBlacklisted)
	assert.Equal(t, RiskLevelHigh, *order.RiskLevel)
	assert.Equal(t, "phone: 13912345678 ≈ 13912345678", *order.MatchDetails)
	assert.Equal(t, now, *order.CheckedAt)

	view := order.View()
	assert.True(t, view.Checked)
}

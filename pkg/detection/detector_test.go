package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func ptr(s string) *string {
	return &s
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type scannerFunc func(models.OrderView, *matching.Snapshot) (models.ScanResult, error)

func (f scannerFunc) ScanOrder(order models.OrderView, snapshot *matching.Snapshot) (models.ScanResult, error) {
	return f(order, snapshot)
}

func testBlacklist() []models.BlacklistEntry {
	return []models.BlacklistEntry{
		{
			ID:           1,
			PrimaryName:  ptr("张三"),
			PhoneNumbers: models.PhoneNumbers{"13912345678"},
			IsActive:     true,
		},
		{
			ID:       2,
			Address1: ptr("上海市浦东新区世纪大道100号3楼"),
			IsActive: true,
		},
	}
}

func testOrders() []models.Order {
	return []models.Order{
		{ID: 11, Orderer: ptr("某人"), ContactPhone: ptr("13912345678"), Checked: true},
		{ID: 12, Orderer: ptr("王五"), ContactPhone: ptr("13800000000"), DetailedAddress: ptr("上海市浦东新区世纪大道100号"), Checked: true},
		{ID: 13, Orderer: ptr("李雷"), DetailedAddress: ptr("北京市朝阳区"), Checked: true},
	}
}

func TestDetector_Run(t *testing.T) {
	engine := matching.NewEngine(matching.DefaultConfig())
	snapshot := matching.NewSnapshot(testBlacklist())

	t.Run("forced batch over mixed orders", func(t *testing.T) {
		detector := NewDetector(engine, testLogger(), 2)

		report, err := detector.Run(context.Background(), testOrders(), snapshot, true)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Summary.Total)
		assert.Equal(t, 3, report.Summary.Checked)
		assert.Equal(t, 2, report.Summary.NewlyMatched)
		assert.Equal(t, 1, report.Summary.Clean)
		assert.Equal(t, 0, report.Summary.Skipped)
		assert.Equal(t, map[models.RiskLevel]int{models.RiskLevelHigh: 1, models.RiskLevelLow: 1}, report.Summary.RiskBreakdown)
		assert.Equal(t, 2, report.Summary.SnapshotSize)

		require.Len(t, report.Outcomes, 3)
		high, low, clean := report.Outcomes[0], report.Outcomes[1], report.Outcomes[2]

		assert.Equal(t, int64(11), high.OrderID)
		assert.True(t, high.IsBlacklisted)
		assert.Equal(t, models.RiskLevelHigh, high.RiskLevel)
		assert.Equal(t, "matched 1 blacklist entries", high.MatchInfo)
		assert.Equal(t, "phone: 13912345678 ≈ 13912345678", high.MatchDetails)

		assert.Equal(t, int64(12), low.OrderID)
		assert.Equal(t, models.RiskLevelLow, low.RiskLevel)
		assert.Contains(t, low.MatchDetails, "address: ")

		assert.Equal(t, int64(13), clean.OrderID)
		assert.False(t, clean.IsBlacklisted)
		assert.Equal(t, models.RiskLevelLow, clean.RiskLevel)
		assert.Equal(t, "no blacklist match", clean.MatchInfo)
		assert.Equal(t, "", clean.MatchDetails)

		assert.Len(t, report.Flagged(), 2)
	})

	t.Run("checked orders are skipped unless forced", func(t *testing.T) {
		orders := testOrders()
		orders[1].Checked = false
		orders[2].Checked = false

		report, err := NewDetector(engine, testLogger(), 4).Run(context.Background(), orders, snapshot, false)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Summary.Total)
		assert.Equal(t, 1, report.Summary.Skipped)
		assert.Equal(t, 2, report.Summary.Checked)
		assert.Equal(t, 1, report.Summary.NewlyMatched)
		assert.Equal(t, map[models.RiskLevel]int{models.RiskLevelLow: 1}, report.Summary.RiskBreakdown)
		for _, o := range report.Outcomes {
			assert.NotEqual(t, int64(11), o.OrderID)
		}
	})

	t.Run("a failing order does not stop the batch", func(t *testing.T) {
		scanner := scannerFunc(func(order models.OrderView, s *matching.Snapshot) (models.ScanResult, error) {
			switch *order.OrdererName {
			case "王五":
				panic("corrupt record")
			case "李雷":
				return models.ScanResult{}, errors.New("scan failed")
			}
			return engine.ScanOrder(order, s)
		})

		report, err := NewDetector(scanner, testLogger(), 3).Run(context.Background(), testOrders(), snapshot, true)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Summary.Total)
		assert.Equal(t, 1, report.Summary.Checked)
		assert.Equal(t, 2, report.Summary.Failed)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, int64(11), report.Outcomes[0].OrderID)

		failed := []int64{report.Failures[0].OrderID, report.Failures[1].OrderID}
		assert.ElementsMatch(t, []int64{12, 13}, failed)
		assert.Contains(t, report.Failures[0].Error, "corrupt record")
	})

	t.Run("nil snapshot is a contract violation", func(t *testing.T) {
		_, err := NewDetector(engine, testLogger(), 1).Run(context.Background(), testOrders(), nil, true)
		assert.ErrorIs(t, err, matching.ErrNilSnapshot)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewDetector(engine, testLogger(), 1).Run(ctx, testOrders(), snapshot, true)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty blacklist leaves every order clean", func(t *testing.T) {
		report, err := NewDetector(engine, testLogger(), 2).Run(context.Background(), testOrders(), matching.NewSnapshot(nil), true)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Summary.Clean)
		assert.Empty(t, report.Summary.RiskBreakdown)
	})
}

func TestMatchDetails(t *testing.T) {
	matches := []models.MatchResult{
		{MatchType: models.MatchTypePhone, Detail: "a ≈ a"},
		{MatchType: models.MatchTypeName, Detail: "b ≈ b"},
		{MatchType: models.MatchTypeName, Detail: "c ≈ c"},
		{MatchType: models.MatchTypeAddress, Detail: "d ≈ d"},
	}

	assert.Equal(t, "phone: a ≈ a; name: b ≈ b; name: c ≈ c", MatchDetails(matches))
	assert.Equal(t, "phone: a ≈ a", MatchDetails(matches[:1]))
	assert.Equal(t, "", MatchDetails(nil))

	info := MatchInfo(models.ScanResult{IsBlacklisted: true, Matches: matches})
	assert.Equal(t, "matched 4 blacklist entries", info)
}

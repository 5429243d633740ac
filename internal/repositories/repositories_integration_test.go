//go:build integration

package repositories_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Ramsey-B/thistle/internal/repositories/blacklist"
	"github.com/Ramsey-B/thistle/internal/repositories/group"
	"github.com/Ramsey-B/thistle/internal/repositories/order"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type RepositorySuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        database.DB
	blacklist *blacklist.Repository
	orders    *order.Repository
	groups    *group.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	ctx := context.Background()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("thistle"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	conn, err := sqlx.Connect("postgres", dsn)
	s.Require().NoError(err)

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: "../../db/pg"})
	s.Require().NoError(migrations.MigratePostgres(conn.DB, "thistle"))

	s.db = database.NewDatabaseInstance(conn, logger)
	s.blacklist = blacklist.NewRepository(s.db, logger)
	s.orders = order.NewRepository(s.db, logger)
	s.groups = group.NewRepository(s.db, logger)
}

func (s *RepositorySuite) TearDownSuite() {
	_ = s.db.Close()
	_ = testcontainers.TerminateContainer(s.container)
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.ExecContext(context.Background(), "TRUNCATE orders, order_groups, blacklist_entries RESTART IDENTITY")
	s.Require().NoError(err)
}

func text(v string) *string {
	return &v
}

func (s *RepositorySuite) seedGroup(orders ...models.Order) int64 {
	ctx := context.Background()

	var groupID int64
	s.Require().NoError(s.db.GetContext(ctx, &groupID, "INSERT INTO order_groups (name) VALUES ('batch') RETURNING id"))

	for _, o := range orders {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO orders (group_id, orderer, contact_phone, detailed_address) VALUES ($1, $2, $3, $4)",
			groupID, o.Orderer, o.ContactPhone, o.DetailedAddress)
		s.Require().NoError(err)
	}
	return groupID
}

func (s *RepositorySuite) TestBlacklistLifecycle() {
	ctx := context.Background()

	req := models.BlacklistEntryRequest{
		PrimaryName:  text("张三"),
		PhoneNumbers: []string{"139-1234-5678", "13912345678"},
		Address1:     text("上海市浦东新区世纪大道100号"),
	}
	created, err := s.blacklist.Create(ctx, req.ToEntry())
	s.Require().NoError(err)
	s.Equal(models.PhoneNumbers{"13912345678"}, created.PhoneNumbers)
	s.Equal(models.EntryTierMedium, created.Tier)

	active, err := s.blacklist.ListActive(ctx)
	s.Require().NoError(err)
	s.Len(active, 1)

	found, total, err := s.blacklist.List(ctx, models.BlacklistFilter{Search: "张"}, database.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Len(found, 1)

	created.ListingReason = text("chargeback")
	updated, err := s.blacklist.Update(ctx, created.ID, *created)
	s.Require().NoError(err)
	s.Equal("chargeback", *updated.ListingReason)

	s.Require().NoError(s.blacklist.Deactivate(ctx, created.ID))
	active, err = s.blacklist.ListActive(ctx)
	s.Require().NoError(err)
	s.Empty(active)

	count, err := s.blacklist.Count(ctx)
	s.Require().NoError(err)
	s.Equal(0, count)

	err = s.blacklist.Deactivate(ctx, 999)
	s.Equal(http.StatusNotFound, httperror.GetStatusCode(err))
}

func (s *RepositorySuite) TestLegacyPhoneColumn() {
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO blacklist_entries (primary_name, phone_numbers) VALUES ('李四', '"13800001111"'::jsonb)`)
	s.Require().NoError(err)

	active, err := s.blacklist.ListActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(models.PhoneNumbers{"13800001111"}, active[0].PhoneNumbers)
}

func (s *RepositorySuite) TestOutcomesAndCounters() {
	ctx := context.Background()
	groupID := s.seedGroup(
		models.Order{Orderer: text("甲"), ContactPhone: text("13912345678")},
		models.Order{Orderer: text("乙"), DetailedAddress: text("北京市朝阳区")},
	)

	orders, err := s.orders.ListByGroup(ctx, groupID)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)

	now := time.Now().UTC()
	outcomes := []models.DetectionOutcome{
		{OrderID: orders[0].ID, IsBlacklisted: true, RiskLevel: models.RiskLevelHigh, MatchInfo: "matched 1 blacklist entries", MatchDetails: "phone: 13912345678 ≈ 13912345678", CheckedAt: now},
		{OrderID: orders[1].ID, RiskLevel: models.RiskLevelLow, MatchInfo: "no blacklist match", CheckedAt: now},
	}

	txCtx, tx, err := s.db.GetTx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.orders.SaveOutcomes(txCtx, outcomes))
	counters, err := s.orders.Counters(txCtx, groupID)
	s.Require().NoError(err)
	summary := models.DetectionSummary{RunID: "run-1", Total: 2, Checked: 2, NewlyMatched: 1}
	s.Require().NoError(s.groups.UpdateCounters(txCtx, groupID, counters, &summary))
	s.Require().NoError(tx.Commit(txCtx))

	g, err := s.groups.Get(ctx, groupID)
	s.Require().NoError(err)
	s.Equal(2, g.TotalOrders)
	s.Equal(2, g.CheckedOrders)
	s.Equal(1, g.BlacklistMatches)
	s.True(g.LastRun.Valid)
	s.Equal("run-1", g.LastRun.Data.RunID)

	flagged, total, err := s.orders.ListResults(ctx, groupID, models.ResultFilter{}, database.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(orders[0].ID, flagged[0].ID)

	all, total, err := s.orders.ListResults(ctx, groupID, models.ResultFilter{All: true}, database.Page{PageSize: 1})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(all, 1)

	rows, err := s.orders.RiskDistribution(ctx, groupID)
	s.Require().NoError(err)
	byLevel := map[string]int{}
	for _, row := range rows {
		key := "none"
		if row.Level != nil {
			key = *row.Level
		}
		byLevel[key] = row.Count
	}
	s.Equal(map[string]int{"HIGH": 1, "none": 1}, byLevel)
}

func (s *RepositorySuite) TestResultFilterByLevel() {
	ctx := context.Background()
	groupID := s.seedGroup(
		models.Order{Orderer: text("丁")},
		models.Order{Orderer: text("戊")},
		models.Order{Orderer: text("己")},
	)

	orders, err := s.orders.ListByGroup(ctx, groupID)
	s.Require().NoError(err)
	s.Require().Len(orders, 3)

	// the third order stays unchecked
	now := time.Now().UTC()
	s.Require().NoError(s.orders.SaveOutcomes(ctx, []models.DetectionOutcome{
		{OrderID: orders[0].ID, IsBlacklisted: true, RiskLevel: models.RiskLevelLow, MatchInfo: "matched 1 blacklist entries", CheckedAt: now},
		{OrderID: orders[1].ID, RiskLevel: models.RiskLevelLow, MatchInfo: "no blacklist match", CheckedAt: now},
	}))

	clean, total, err := s.orders.ListResults(ctx, groupID, models.ResultFilter{RiskLevel: models.RiskLevelNone}, database.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(clean, 1)
	s.Equal(orders[1].ID, clean[0].ID)

	low, total, err := s.orders.ListResults(ctx, groupID, models.ResultFilter{RiskLevel: models.RiskLevelLow, All: true}, database.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(low, 1)
	s.Equal(orders[0].ID, low[0].ID)
}

func (s *RepositorySuite) TestRollbackDiscardsOutcomes() {
	ctx := context.Background()
	groupID := s.seedGroup(models.Order{Orderer: text("丙")})

	orders, err := s.orders.ListByGroup(ctx, groupID)
	s.Require().NoError(err)

	txCtx, tx, err := s.db.GetTx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.orders.SaveOutcomes(txCtx, []models.DetectionOutcome{
		{OrderID: orders[0].ID, IsBlacklisted: true, RiskLevel: models.RiskLevelMedium, CheckedAt: time.Now()},
	}))
	s.Require().NoError(tx.Rollback(txCtx))

	o, err := s.orders.Get(ctx, orders[0].ID)
	s.Require().NoError(err)
	s.False(o.Checked)
	s.Nil(o.RiskLevel)
}

//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type LockerSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *Client
	locker    *Locker
}

func TestLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LockerSuite))
}

func (s *LockerSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)
	opts, err := goredis.ParseURL(url)
	s.Require().NoError(err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s.client = NewClientFrom(goredis.NewClient(opts), logger)
	s.locker = NewLocker(s.client, "test:lock:")
}

func (s *LockerSuite) TearDownSuite() {
	_ = s.client.Close()
	_ = testcontainers.TerminateContainer(s.container)
}

func (s *LockerSuite) TestSingleHolder() {
	ctx := context.Background()

	lock, err := s.locker.Acquire(ctx, "group:1", time.Minute)
	s.Require().NoError(err)

	_, err = s.locker.Acquire(ctx, "group:1", time.Minute)
	s.ErrorIs(err, ErrLockNotAcquired)

	other, err := s.locker.Acquire(ctx, "group:2", time.Minute)
	s.Require().NoError(err)
	s.NoError(other.Release(ctx))

	s.NoError(lock.Release(ctx))
	s.ErrorIs(lock.Release(ctx), ErrLockNotHeld)

	again, err := s.locker.Acquire(ctx, "group:1", time.Minute)
	s.Require().NoError(err)
	s.NoError(again.Release(ctx))
}

func (s *LockerSuite) TestExpiredLockIsNotReleasedByOldHolder() {
	ctx := context.Background()

	stale, err := s.locker.Acquire(ctx, "group:3", 50*time.Millisecond)
	s.Require().NoError(err)
	time.Sleep(100 * time.Millisecond)

	fresh, err := s.locker.Acquire(ctx, "group:3", time.Minute)
	s.Require().NoError(err)

	s.ErrorIs(stale.Release(ctx), ErrLockNotHeld)
	s.NoError(fresh.Release(ctx))
}

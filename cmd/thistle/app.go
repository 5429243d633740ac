package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/internal/repositories/blacklist"
	"github.com/Ramsey-B/thistle/internal/repositories/group"
	"github.com/Ramsey-B/thistle/internal/repositories/order"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/detection"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/extractor"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/routes"
	blacklistroutes "github.com/Ramsey-B/thistle/pkg/routes/blacklist"
	detectionroutes "github.com/Ramsey-B/thistle/pkg/routes/detection"
	"github.com/Ramsey-B/thistle/pkg/routes/screening"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/tracing"
	"github.com/Ramsey-B/thistle/pkg/tracing/exporters"
)

// app holds every connected dependency. Optional ones stay nil when disabled.
type app struct {
	cfg       *config.Config
	logger    ectologger.Logger
	startup   *startup.Startup
	db        *database.DatabaseInstance
	redis     *redis.Client
	graph     *graph.Client
	producer  *kafka.Producer
	blacklist *blacklist.Repository
	service   *detection.Service
	container ectocontainer.DIContainer
}

// newApp registers the dependencies in start order. Nothing connects until start.
func newApp(cfg *config.Config, logger ectologger.Logger) *app {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	otlp := exporters.DefaultOTLPConfig()
	otlp.Endpoint = cfg.TracingEndpoint
	otlp.Protocol = cfg.TracingProtocol

	var shutdownTracing func(context.Context) error
	a.startup.Add(startup.Func{
		Name: "tracing",
		StartFn: func(ctx context.Context) (err error) {
			shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
				ServiceName: cfg.AppName,
				Version:     cfg.Version,
				Exporter:    cfg.TracingExporter,
				OTLP:        otlp,
			}, logger)
			return err
		},
		StopFn: func(ctx context.Context) error {
			if shutdownTracing == nil {
				return nil
			}
			return shutdownTracing(ctx)
		},
	})

	a.startup.Add(startup.Func{
		Name: "postgres",
		StartFn: func(ctx context.Context) (err error) {
			a.db, err = database.Connect(ctx, database.Config{
				DSN:             cfg.DatabaseDSN(),
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			return err
		},
		StopFn: func(ctx context.Context) error {
			return a.db.Close()
		},
	})

	if cfg.RedisHost != "" {
		a.startup.Add(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) (err error) {
				a.redis, err = redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				return err
			},
			StopFn: func(ctx context.Context) error {
				return a.redis.Close()
			},
		})
	}

	graphConfig := graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}
	if graphConfig.Enabled() {
		a.startup.Add(startup.Func{
			Name: "graph",
			StartFn: func(ctx context.Context) (err error) {
				a.graph, err = graph.NewClient(ctx, graphConfig, logger)
				return err
			},
			StopFn: func(ctx context.Context) error {
				return a.graph.Close(ctx)
			},
		})
	}

	if cfg.KafkaEnabled {
		a.startup.Add(startup.Func{
			Name: "kafka-producer",
			StartFn: func(ctx context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFn: func(ctx context.Context) error {
				return a.producer.Close()
			},
		})
	}

	a.startup.Add(startup.Func{
		Name: "detection",
		StartFn: func(ctx context.Context) error {
			return a.wire()
		},
	})

	return a
}

// wire builds repositories and the detection service on top of the connections
// and registers what the route handlers resolve.
func (a *app) wire() error {
	a.blacklist = blacklist.NewRepository(a.db, a.logger)

	deps := detection.Dependencies{
		Logger: a.logger,
		Engine: matching.NewEngine(matching.Config{
			PhoneThreshold:   a.cfg.MatchPhoneThreshold,
			NameThreshold:    a.cfg.MatchNameThreshold,
			AddressThreshold: a.cfg.MatchAddressThreshold,
		}),
		Blacklist: a.blacklist,
		Orders:    order.NewRepository(a.db, a.logger),
		Groups:    group.NewRepository(a.db, a.logger),
		Tx:        a.db,
		Workers:   a.cfg.DetectionWorkerCount,
		LockTTL:   a.cfg.DetectionLockTTL,
	}
	if a.redis != nil {
		deps.Locker = detection.NewRedisLocker(redis.NewLocker(a.redis, ""))
	}
	if a.graph != nil {
		deps.Graph = graph.NewProjector(a.graph, a.logger)
	}
	if a.producer != nil {
		deps.Events = events.NewEmitter(a.producer, a.logger)
	}

	a.service = detection.NewService(deps)

	return a.register()
}

func (a *app) register() error {
	container, err := routes.NewContainer(a.cfg.AppName, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create dependency container: %w", err)
	}

	registrations := []func() error{
		func() error { return ectoinject.RegisterInstance[ectologger.Logger](container, a.logger) },
		func() error { return ectoinject.RegisterInstance[blacklistroutes.Repository](container, a.blacklist) },
		func() error { return ectoinject.RegisterInstance[detectionroutes.Service](container, a.service) },
		func() error { return ectoinject.RegisterInstance[screening.Scanner](container, a.service) },
		func() error {
			return ectoinject.RegisterInstance[extractor.OrderPaths](container, extractor.DefaultOrderPaths)
		},
	}
	if a.graph != nil {
		registrations = append(registrations, func() error {
			return ectoinject.RegisterInstance[blacklistroutes.MatchLookup](container, graph.NewProjector(a.graph, a.logger))
		})
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return fmt.Errorf("failed to register dependency: %w", err)
		}
	}

	a.container = container
	return nil
}

func (a *app) start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = a.startup.Stop(ctx)
}

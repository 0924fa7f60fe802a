package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/lightlink-network/ll-whale-tracker/api"
	"github.com/lightlink-network/ll-whale-tracker/config"
	"github.com/lightlink-network/ll-whale-tracker/database"
	"github.com/lightlink-network/ll-whale-tracker/ethereum"
	"github.com/lightlink-network/ll-whale-tracker/labels"
	"github.com/lightlink-network/ll-whale-tracker/metrics"
	"github.com/lightlink-network/ll-whale-tracker/sink"
	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Version will be set at build time
var Version = "development"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	Logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(Logger)

	Logger.Info("Starting ll-whale-tracker ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	book, err := labels.Load(cfg.ExchangesFile)
	if err != nil {
		log.Fatalf("failed to load exchange labels: %v", err)
	}
	if book.Len() == 0 {
		Logger.Warn("no exchange labels loaded, transfers will not be tagged", "file", cfg.ExchangesFile)
	}

	decoder, err := ethereum.NewTransferDecoder()
	if err != nil {
		log.Fatal(err)
	}

	recent := sink.NewRecent(cfg.RecentSize)
	outputs, store, closers, err := openSinks(ctx, cfg, Logger)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				Logger.Error("failed to close sink", "error", err)
			}
		}
	}()

	var trk *tracker.Tracker
	eth, err := ethereum.NewClient(ethereum.ClientOpts{
		Endpoint:        cfg.EthWSURL,
		Logger:          Logger.With("component", "ethereum"),
		PollInterval:    cfg.PollInterval,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		DropAfterMisses: cfg.DropAfterMisses,
		FetchWorkers:    cfg.FetchWorkers,
		Skip: func(hash string) bool {
			return trk != nil && trk.IsTracked(hash)
		},
	})
	if err != nil {
		log.Fatalf("failed to create ethereum client: %v", err)
	}
	defer eth.Close()

	trk, err = tracker.New(tracker.Opts{
		TokenContract:  cfg.TokenContract,
		DecimalScale:   cfg.TokenDecimals,
		Threshold:      cfg.Threshold,
		TTL:            cfg.TTL,
		SweepInterval:  cfg.SweepInterval,
		ReconnectDelay: cfg.ReconnectDelay,
		Decoder:        decoder,
		Labels:         book,
		Confirmer:      eth,
		Sink:           append(sink.Multi{recent}, outputs...),
		OnSinkError: func(row types.Row, err error) {
			Logger.Error("outcome lost", "hash", row.Hash, "status", row.Status, "error", err)
		},
		Metrics: m,
		Logger:  Logger.With("component", "tracker"),
	})
	if err != nil {
		log.Fatalf("failed to create tracker: %v", err)
	}

	serverOpts := api.ServerOpts{
		Logger:    Logger.With("component", "api-server"),
		Port:      cfg.APIPort,
		Tracker:   trk,
		Recent:    recent,
		Metrics:   m.Handler(),
		CSVPath:   cfg.CSVPath,
		Threshold: cfg.Threshold.String(),
		RPC:       cfg.EthWSURL,
		ChainID:   eth.ChainID().String(),
	}
	if store != nil {
		serverOpts.Outcomes = store
	}
	server := api.NewServer(serverOpts)

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		errChan <- server.StartServer(ctx)
	}()
	go func() {
		errChan <- trk.Run(ctx, eth)
	}()

	// Wait for either error or signal
	select {
	case err := <-errChan:
		if err != nil {
			Logger.Error("fatal error", "error", err)
		}
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")
	}
	cancel()

	// Watchers abandon on cancel; give them a moment to unwind.
	done := make(chan struct{})
	go func() {
		trk.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		Logger.Warn("watchers did not stop in time", "inFlight", trk.InFlight())
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// openSinks connects every configured output. Each one gets its own retry
// wrapper so a flaky backend is retried alone.
func openSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]tracker.Sink, *database.Database, []io.Closer, error) {
	var (
		outputs []tracker.Sink
		closers []io.Closer
		store   *database.Database
	)

	add := func(name string, s tracker.Sink) {
		outputs = append(outputs, sink.NewRetry(s, sink.RetryOpts{
			Name:     name,
			Attempts: cfg.SinkRetryAttempts,
			Backoff:  cfg.SinkRetryBackoff,
			Logger:   logger.With("component", "sink"),
		}))
		logger.Info("sink enabled", "sink", name)
	}

	if cfg.CSVPath != "" {
		csv, err := sink.NewCSV(cfg.CSVPath)
		if err != nil {
			return nil, nil, closers, err
		}
		closers = append(closers, csv)
		add("csv", csv)
	}

	if cfg.DatabaseURI != "" {
		db, err := database.NewDatabase(database.DatabaseOpts{
			URI:          cfg.DatabaseURI,
			DatabaseName: cfg.DatabaseName,
			Logger:       logger.With("component", "database"),
		})
		if err != nil {
			return nil, nil, closers, fmt.Errorf("failed to create database: %w", err)
		}
		if err := db.CreateIndexes(ctx); err != nil {
			return nil, nil, closers, fmt.Errorf("failed to create database indexes: %w", err)
		}
		closers = append(closers, closeFunc(func() error { return db.Close(context.Background()) }))
		store = db
		add("mongo", db)
	}

	if cfg.PostgresURL != "" {
		pg, err := sink.NewPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, closers, err
		}
		closers = append(closers, closeFunc(func() error { pg.Close(); return nil }))
		counts, err := pg.CountByStatus(ctx)
		if err != nil {
			return nil, nil, closers, fmt.Errorf("failed to count stored outcomes: %w", err)
		}
		logger.Info("stored outcomes", "sink", "postgres",
			"mined", counts[types.Mined],
			"reverted", counts[types.Reverted],
			"dropped", counts[types.Dropped])
		add("postgres", pg)
	}

	if cfg.RedisAddr != "" {
		rs, err := sink.NewRedisStream(ctx, sink.RedisStreamOpts{Addr: cfg.RedisAddr, Stream: cfg.RedisStream})
		if err != nil {
			return nil, nil, closers, err
		}
		closers = append(closers, rs)
		add("redis", rs)
	}

	if len(cfg.KafkaBrokers) > 0 {
		k := sink.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, k)
		add("kafka", k)
	}

	return outputs, store, closers, nil
}

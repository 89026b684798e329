package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/events"
	"github.com/dvloznov/statement-insights/internal/history"
	"github.com/dvloznov/statement-insights/internal/insights"
	"github.com/dvloznov/statement-insights/internal/kvstore"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// The worker follows completed analyses on the AMQP exchange and logs a
// digest of each one, read back from the shared history store.
func main() {
	_ = godotenv.Load()

	configFile := flag.String("config", "", "Optional config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("amqp.url (AMQP_URL) is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	store, err := kvstore.Open(ctx, cfg.Store, cfg.GoogleCredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	hist := history.NewStore(store, cfg.Store.HistoryKey)

	consumer, err := events.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP")
	}
	defer consumer.Close()

	log.Info().Str("queue", cfg.AMQPQueue).Msg("Starting worker service")

	err = consumer.Consume(ctx, func(ctx context.Context, event domain.AnalysisCompleted) error {
		digest(ctx, hist, event)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Worker stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Worker stopped")
}

// digest logs the headline numbers of a completed analysis. The history is
// reloaded per event because the API process owns writes.
func digest(ctx context.Context, hist *history.Store, event domain.AnalysisCompleted) {
	log := logger.FromContext(ctx).With().
		Str("run_id", event.RunID).
		Str("statement_type", string(event.StatementType)).
		Str("month", event.Month).
		Int("transactions", event.TransactionCount).
		Logger()

	if event.Warning != "" || event.HistoryID == "" {
		log.Warn().Str("warning", event.Warning).Msg("Analysis completed without a history entry")
		return
	}

	hist.Load(ctx)
	entry, err := hist.Get(event.HistoryID)
	if err != nil {
		log.Warn().Err(err).Str("history_id", event.HistoryID).Msg("History entry not visible to worker")
		return
	}

	switch {
	case entry.Data.Insights.Bank != nil:
		b := entry.Data.Insights.Bank
		log.Info().
			Str("income", insights.FormatYen(b.TotalIncome)).
			Str("expense", insights.FormatYen(b.TotalExpense)).
			Float64("savings_rate", b.SavingsRate).
			Msg("Bank statement analyzed")
	case entry.Data.Insights.CreditCard != nil:
		c := entry.Data.Insights.CreditCard
		log.Info().
			Str("total_spending", insights.FormatYen(c.TotalSpending)).
			Str("top_category", c.TopSpendingCategory).
			Msg("Credit card bill analyzed")
	default:
		log.Info().Msg("Analysis completed")
	}
}

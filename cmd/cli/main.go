package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/app"
	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/gcs"
	infraBQ "github.com/dvloznov/statement-insights/internal/infra/bigquery"
	"github.com/dvloznov/statement-insights/internal/insights"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze()
	case "history":
		runHistory()
	case "show":
		runShow()
	case "delete":
		runDelete()
	case "trends":
		runTrends()
	case "credential":
		runCredential()
	case "prompt":
		runPrompt()
	case "archive":
		runArchive()
	case "bq-init":
		runBQInit()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze     Analyze a statement PDF (local path or gs:// URI)")
	fmt.Println("  history     List past analyses")
	fmt.Println("  show        Show one past analysis")
	fmt.Println("  delete      Delete one past analysis")
	fmt.Println("  trends      Show the bank income/expense trend")
	fmt.Println("  credential  Store the model API key")
	fmt.Println("  prompt      Print the prompt for a statement type")
	fmt.Println("  archive     Copy a local PDF to the statement archive bucket")
	fmt.Println("  bq-init     Create the BigQuery run ledger table")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// command is the shared state of one subcommand invocation.
type command struct {
	fs         *flag.FlagSet
	configFile *string
}

func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &command{
		fs:         fs,
		configFile: fs.String("config", "", "Optional config file"),
	}
}

func (c *command) parse() {
	_ = c.fs.Parse(os.Args[2:])
}

// setup loads configuration and builds the logger and application.
func (c *command) setup() (context.Context, zerolog.Logger, *config.Config, *app.App) {
	cfg, log := c.loadConfig()

	ctx := logger.WithContext(context.Background(), log)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	return ctx, log, cfg, application
}

func (c *command) loadConfig() (*config.Config, zerolog.Logger) {
	cfg, err := config.Load(*c.configFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// The CLI logs to stderr so stdout stays clean for output.
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}
	return cfg, log
}

func statementType(log zerolog.Logger, raw string) domain.StatementType {
	t, err := domain.ParseStatementType(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid statement type")
	}
	return t
}

func runAnalyze() {
	cmd := newCommand("analyze")
	file := cmd.fs.String("file", "", "Statement PDF: local path or gs://bucket/object")
	typ := cmd.fs.String("type", string(domain.StatementTypeBank), "Statement type: bank or credit_card")
	asJSON := cmd.fs.Bool("json", false, "Print the full result as JSON")
	cmd.parse()

	ctx, log, _, application := cmd.setup()
	defer application.Close()

	if *file == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	t := statementType(log, *typ)

	pdf, filename, err := readDocument(ctx, application, *file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read statement")
	}

	outcome, err := application.Service.Analyze(ctx, pipeline.AnalyzeRequest{
		StatementType: t,
		Filename:      filename,
		PDF:           pdf,
	})
	if err != nil {
		log.Fatal().Err(err).Str("kind", string(pipeline.KindOf(err))).Msg("Analysis failed")
	}

	if outcome.Warning != nil {
		log.Warn().Err(outcome.Warning).Msg("Result was not saved to history")
	}

	if *asJSON {
		printJSON(outcome)
		return
	}
	printResult(outcome.Result)
	if outcome.HistoryID != "" {
		fmt.Printf("\nSaved to history as %s\n", outcome.HistoryID)
	}
}

// readDocument loads a statement from a local path or a gs:// URI.
func readDocument(ctx context.Context, application *app.App, location string) ([]byte, string, error) {
	if !strings.HasPrefix(location, "gs://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Base(location), nil
	}

	bucket, object, err := gcs.ParseURI(location)
	if err != nil {
		return nil, "", err
	}
	objects, err := application.ObjectStorage(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := objects.ReadObject(ctx, bucket, object)
	if err != nil {
		return nil, "", err
	}
	return data, gcs.ExtractFilename(location), nil
}

func runHistory() {
	cmd := newCommand("history")
	typ := cmd.fs.String("type", "", "Only show one statement type: bank or credit_card")
	cmd.parse()

	_, log, _, application := cmd.setup()
	defer application.Close()

	entries := application.History.Entries()
	if *typ != "" {
		entries = application.History.Filter(statementType(log, *typ))
	}

	if len(entries) == 0 {
		fmt.Println("No analyses in history.")
		return
	}

	fmt.Printf("%-15s  %-20s  %-12s  %s\n", "ID", "DATE", "TYPE", "MONTH")
	for _, e := range entries {
		fmt.Printf("%-15s  %-20s  %-12s  %s\n", e.ID, e.Date.Local().Format("2006-01-02 15:04"), e.Type, e.Month)
	}
}

func runShow() {
	cmd := newCommand("show")
	id := cmd.fs.String("id", "", "History entry ID")
	asJSON := cmd.fs.Bool("json", false, "Print the entry as JSON")
	cmd.parse()

	_, log, _, application := cmd.setup()
	defer application.Close()

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	entry, err := application.History.Get(*id)
	if err != nil {
		log.Fatal().Err(err).Msg("History entry not found")
	}

	if *asJSON {
		printJSON(entry)
		return
	}
	fmt.Printf("Analyzed: %s\n\n", entry.Date.Local().Format(time.RFC1123))
	printResult(entry.Data)
}

func runDelete() {
	cmd := newCommand("delete")
	id := cmd.fs.String("id", "", "History entry ID")
	cmd.parse()

	ctx, log, _, application := cmd.setup()
	defer application.Close()

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	if err := application.History.Delete(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete history entry")
	}
	fmt.Printf("Deleted %s\n", *id)
}

func runTrends() {
	cmd := newCommand("trends")
	cmd.parse()

	_, _, _, application := cmd.setup()
	defer application.Close()

	trend, err := insights.BuildTrend(application.History.Entries())
	if errors.Is(err, insights.ErrInsufficientData) {
		fmt.Printf("Not enough bank statements for a trend: %d of %d required.\n", trend.Available, insights.MinTrendPoints)
		return
	}

	fmt.Printf("%-6s  %14s  %14s  %14s\n", "MONTH", "INCOME", "EXPENSE", "NET SAVINGS")
	for i, label := range trend.Labels {
		fmt.Printf("%-6s  %14s  %14s  %14s\n", label,
			insights.FormatYen(trend.Income[i]),
			insights.FormatYen(trend.Expense[i]),
			insights.FormatYen(trend.NetSavings[i]))
	}
}

func runCredential() {
	cmd := newCommand("credential")
	key := cmd.fs.String("key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	cmd.parse()

	ctx, log, _, application := cmd.setup()
	defer application.Close()

	if *key == "" {
		*key = os.Getenv("GEMINI_API_KEY")
	}
	if *key == "" {
		configured, masked := application.Credentials.Configured(ctx)
		if !configured {
			fmt.Println("No API key configured.")
			return
		}
		fmt.Printf("API key configured: %s\n", masked)
		return
	}

	if err := application.Credentials.Save(ctx, *key); err != nil {
		log.Fatal().Err(err).Msg("Failed to save API key")
	}
	_, masked := application.Credentials.Configured(ctx)
	fmt.Printf("API key saved: %s\n", masked)
}

func runPrompt() {
	cmd := newCommand("prompt")
	typ := cmd.fs.String("type", string(domain.StatementTypeBank), "Statement type: bank or credit_card")
	cmd.parse()

	log := logger.NewWithWriter(os.Stderr)
	prompt, err := pipeline.BuildPrompt(statementType(log, *typ))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build prompt")
	}
	fmt.Println(prompt)
}

func runArchive() {
	cmd := newCommand("archive")
	filePath := cmd.fs.String("file", "", "Path to local PDF file")
	label := cmd.fs.String("label", "", "Object name label (defaults to the file name)")
	cmd.parse()

	ctx, log, cfg, application := cmd.setup()
	defer application.Close()

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli archive -file PATH [-label NAME]")
	}
	if !cfg.Archive.Enabled() {
		log.Fatal().Msg("Error: archive.bucket (ARCHIVE_BUCKET) is not configured")
	}
	if *label == "" {
		*label = strings.TrimSuffix(filepath.Base(*filePath), filepath.Ext(*filePath))
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	objects, err := application.ObjectStorage(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	uri, err := gcs.NewArchiver(objects, cfg.Archive.Bucket, cfg.Archive.Prefix).Archive(ctx, *label, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Archive failed")
	}
	fmt.Printf("Archived %s to %s\n", *filePath, uri)
}

func runBQInit() {
	cmd := newCommand("bq-init")
	cmd.parse()

	cfg, log := cmd.loadConfig()
	if cfg.BigQueryProject == "" {
		log.Fatal().Msg("Error: bigquery.project (BIGQUERY_PROJECT) is not configured")
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), 2*time.Minute)
	defer cancel()

	recorder, err := infraBQ.NewRunRecorder(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable, cfg.GoogleCredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer recorder.Close()

	if err := recorder.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create run ledger table")
	}
	fmt.Printf("Run ledger ready: %s.%s.%s\n", cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printResult(result domain.AnalysisResult) {
	data := result.BillData
	fmt.Printf("=== %s statement %s ===\n", result.StatementType, data.Month())

	switch {
	case result.Insights.Bank != nil:
		b := result.Insights.Bank
		fmt.Printf("Income:       %s\n", insights.FormatYen(b.TotalIncome))
		fmt.Printf("Expense:      %s\n", insights.FormatYen(b.TotalExpense))
		fmt.Printf("Net savings:  %s\n", insights.FormatYen(b.NetSavings))
		fmt.Printf("Savings rate: %.1f%%\n", b.SavingsRate)
		for _, r := range b.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	case result.Insights.CreditCard != nil:
		c := result.Insights.CreditCard
		fmt.Printf("Total spending:    %s\n", insights.FormatYen(c.TotalSpending))
		fmt.Printf("Top category:      %s\n", c.TopSpendingCategory)
		fmt.Printf("Potential savings: %s\n", insights.FormatYen(int64(c.PotentialSavings)))
		for _, row := range c.CategoryBreakdown {
			fmt.Printf("  %-15s %12s  %5.1f%%\n", row.Category, insights.FormatYen(row.Amount), row.Percentage)
		}
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(data.Transactions))
	for i, txn := range data.Transactions {
		date := "-"
		if txn.Date != nil {
			date = txn.Date.String()
		}
		fmt.Printf("%3d. %-10s  %-30s  %12s  %s\n", i+1, date, txn.Merchant, insights.FormatYen(txn.Amount), txn.Category)
	}
}

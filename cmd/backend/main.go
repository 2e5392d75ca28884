package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"harukcal/backend/internal/config"
	"harukcal/backend/internal/crawler"
	"harukcal/backend/internal/database"
	importissues "harukcal/backend/internal/import"
	"harukcal/backend/internal/server"
	"harukcal/backend/internal/storage"
	"harukcal/backend/internal/summarize"
	"harukcal/backend/internal/vision"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func main() {
	// Optional .env next to the binary; real env vars win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg := config.DefaultConfig()

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.IssuesCSVPath, "csv", config.GetEnvString("JOURNAL_CSV_PATH", config.DefaultIssuesCSVPath),
		"Path to the issues CSV file (env: JOURNAL_CSV_PATH)")
	importCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("JOURNAL_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: JOURNAL_DB_PATH)")

	var importLogLevelStr string
	importCmd.StringVar(&importLogLevelStr, "log-level", config.GetEnvString("JOURNAL_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: JOURNAL_LOG_LEVEL)")

	crawlCmd := flag.NewFlagSet("crawl", flag.ExitOnError)
	crawlCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("JOURNAL_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: JOURNAL_DB_PATH)")
	crawlCmd.StringVar(&cfg.StatePath, "state", config.GetEnvString("JOURNAL_STATE_PATH", config.DefaultStatePath),
		"Path to the persisted crawl state file (env: JOURNAL_STATE_PATH)")
	crawlCmd.StringVar(&cfg.CronSpec, "cron", config.GetEnvString("JOURNAL_CRON", config.DefaultCronSpec),
		"Cron schedule for repeated monthly-crawl checks, empty for one-shot mode (env: JOURNAL_CRON)")

	var crawlDelay float64
	crawlCmd.Float64Var(&crawlDelay, "delay", config.GetEnvFloat("JOURNAL_CRAWL_DELAY", 0),
		"Override the persisted inter-request delay in seconds, 0 keeps the stored value (env: JOURNAL_CRAWL_DELAY)")

	var crawlLogLevelStr string
	crawlCmd.StringVar(&crawlLogLevelStr, "log-level", config.GetEnvString("JOURNAL_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: JOURNAL_LOG_LEVEL)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("JOURNAL_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: JOURNAL_DB_PATH)")
	serverCmd.StringVar(&cfg.StatePath, "state", config.GetEnvString("JOURNAL_STATE_PATH", config.DefaultStatePath),
		"Path to the persisted crawl state file (env: JOURNAL_STATE_PATH)")
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("JOURNAL_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: JOURNAL_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("JOURNAL_PORT", config.DefaultServerPort),
		"Port to listen on (env: JOURNAL_PORT)")

	var serverLogLevelStr string
	serverCmd.StringVar(&serverLogLevelStr, "log-level", config.GetEnvString("JOURNAL_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: JOURNAL_LOG_LEVEL)")

	deleteDBCmd := flag.NewFlagSet("delete-db", flag.ExitOnError)
	deleteDBCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("JOURNAL_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: JOURNAL_DB_PATH)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, importLogLevelStr)

		if err := runImport(cfg); err != nil {
			log.Error().Err(err).Msg("Import failed")
			os.Exit(1)
		}

	case "crawl":
		crawlCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, crawlLogLevelStr)

		if err := runCrawl(cfg, crawlDelay); err != nil {
			log.Error().Err(err).Msg("Crawl failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, serverLogLevelStr)

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "delete-db":
		deleteDBCmd.Parse(os.Args[2:])

		if err := database.DeleteDB(cfg.DBPath); err != nil {
			log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to delete database")
			os.Exit(1)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Database deleted")

	case "-h", "--help", "help":
		printUsage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: backend [command] [options]")
	fmt.Println("Commands: import, crawl, server, delete-db")
	fmt.Println("\nFor command-specific options, use: backend [command] -h")
}

func applyLogLevel(cfg *config.Config, levelStr string) {
	if level, err := zerolog.ParseLevel(levelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// runImport backfills issues from a CSV file.
func runImport(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	importer := importissues.NewImporter(storage.NewIssueRepository(db))
	return importer.ImportIssues(context.Background(), cfg.IssuesCSVPath)
}

// runCrawl runs the scheduled monthly crawl, either once or on a cron
// schedule. The 30-day gate inside the scheduler decides whether a given
// invocation does any work.
func runCrawl(cfg *config.Config, delayOverride float64) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	state := crawler.LoadStateFile(cfg.StatePath)
	if delayOverride > 0 {
		if err := state.Update(func(st *crawler.State) {
			st.DelayBetweenRequests = delayOverride
		}); err != nil {
			log.Warn().Err(err).Msg("Failed to persist delay override")
		}
	}

	scheduler := crawler.NewScheduler(crawlerFor(cfg, storage.NewIssueRepository(db)), state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if cfg.CronSpec == "" {
		log.Info().Msg("Running in one-shot mode")
		result := scheduler.MonthlyCrawl(ctx)
		log.Info().
			Str("run_id", result.RunID).
			Str("status", result.Status).
			Int("articles_crawled", result.ArticlesCrawled).
			Msg("Monthly crawl finished")
		return nil
	}

	log.Info().Str("cron", cfg.CronSpec).Msg("Running in scheduled mode")

	c := cron.New()
	_, err = c.AddFunc(cfg.CronSpec, func() {
		result := scheduler.MonthlyCrawl(ctx)
		log.Info().
			Str("run_id", result.RunID).
			Str("status", result.Status).
			Int("articles_crawled", result.ArticlesCrawled).
			Msg("Scheduled monthly crawl finished")
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", cfg.CronSpec, err)
	}

	c.Start()
	<-ctx.Done()

	log.Info().Msg("Stopping cron scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := storage.NewIssueRepository(db)
	c := crawlerFor(cfg, repo)
	scheduler := crawler.NewScheduler(c, crawler.LoadStateFile(cfg.StatePath))

	mux := server.NewRouter(repo, c, scheduler, vision.NewAnalyzer(cfg.OpenAIAPIKey))
	return server.RunServer(mux, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func crawlerFor(cfg *config.Config, repo *storage.IssueRepository) *crawler.Crawler {
	fetcher := crawler.NewFetcher(config.JournalBaseURL)
	summarizer := summarize.NewOpenAIClient(cfg.OpenAIAPIKey)
	return crawler.New(fetcher, summarizer, repo)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"skycrawl/pkg/atproto"
	"skycrawl/pkg/auth"
	"skycrawl/pkg/config"
	"skycrawl/pkg/crawler"
	apperrors "skycrawl/pkg/errors"
	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
	"skycrawl/pkg/ratelimit"
	"skycrawl/pkg/storage"
	"skycrawl/pkg/ui"
	"skycrawl/pkg/ui/tui"
)

func runCrawl(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet && !useTUI {
		ui.PrintLogo()
	}

	// A missing keychain or config dir only disables stored credentials
	credManager, credErr := auth.NewManager()
	if credErr != nil {
		credManager = nil
	}

	cfg, err := config.Load(configFile, commandLineFlags(), auth.Lookup(credManager, auth.IsInteractive(), os.Stderr))
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		if strings.Contains(err.Error(), "ATPROTO_PASSWORD") {
			auth.ShowAppPasswordGuide(os.Stderr)
		}
		return err
	}

	// Log lines would tear the full-screen view
	if useTUI && cfg.Logging.File == "" {
		cfg.Logging.Level = "error"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeConfig, "failed to initialize logger", err)
	}
	log = log.WithField("version", version)
	if credErr != nil {
		log.WithError(credErr).Debug("Credential store unavailable")
	}

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	client := atproto.NewClient(cfg.AtProto.Endpoint, cfg.AtProto.Timeout, limiter, log)
	if cfg.AtProto.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.AtProto.UserAgent)
	}

	session, err := client.CreateSession(ctx, cfg.AtProto.Username, cfg.AtProto.Password)
	if err != nil {
		ui.PrintError("Sign-in failed", err)
		if apperrors.Is(err, apperrors.ErrorTypeAuth) {
			auth.ShowAppPasswordGuide(os.Stderr)
		}
		return err
	}
	log.InfoWithFields("Signed in", map[string]interface{}{
		"handle": session.Handle,
		"did":    session.DID,
	})

	if saveCredentials {
		storeCredentials(credManager, cfg, log)
	}

	sink, err := buildSink(cfg, log)
	if err != nil {
		ui.PrintError("Failed to open output", err)
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.WithError(err).Warn("Failed to close output")
		}
	}()

	source := atproto.NewSource(client, atproto.SourceOptions{
		FollowerPages:    cfg.Crawl.FollowerPages,
		FeedPages:        cfg.Crawl.FeedPages,
		FollowerPageSize: cfg.Crawl.FollowerPageSize,
		FeedPageSize:     cfg.Crawl.FeedPageSize,
	}, log)

	seedID := cfg.SeedIdentifier()
	tracker := metrics.NewTracker()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		observer crawler.Observer
		screen   *tui.Program
	)
	if useTUI {
		screen = tui.NewProgram(tui.Config{
			Seed:     seedID,
			MaxUsers: cfg.Crawl.MaxUsers,
			Stats:    tracker.GetSnapshot,
			OnQuit:   cancel,
		})
		observer = screen
	} else {
		printer := ui.NewProgressPrinter(os.Stdout, quiet)
		if !quiet && isatty.IsTerminal(os.Stdout.Fd()) {
			printer.WithColor()
		}
		observer = printer
	}
	if notify {
		observer = ui.NewNotifier(observer)
	}

	phaseOptions := func(extra ...crawler.Option) []crawler.Option {
		return append([]crawler.Option{
			crawler.WithLogger(log),
			crawler.WithMetrics(tracker),
			crawler.WithObserver(observer),
			crawler.WithCallTimeout(cfg.Crawl.CallTimeout),
		}, extra...)
	}

	runner := crawler.NewRunner(
		crawler.NewFollowerCrawler(source, phaseOptions(
			crawler.WithWorkers(cfg.Crawl.FollowerWorkers),
			crawler.WithMaxUsers(cfg.Crawl.MaxUsers),
		)...),
		crawler.NewFeedHarvester(source, phaseOptions(
			crawler.WithWorkers(cfg.Crawl.FeedWorkers),
		)...),
		sink,
		crawler.WithResolver(client),
		crawler.WithMetricsTextfile(tracker, cfg.Metrics.TextfilePath),
		crawler.WithRunObserver(observer),
		crawler.WithRunLogger(log),
	)

	if !quiet && !useTUI {
		ui.PrintInfo("Seed", seedID)
		ui.PrintInfo("Max users", fmt.Sprintf("%d", cfg.Crawl.MaxUsers))
	}

	var summary *crawler.Summary
	if screen != nil {
		summary, err = runWithScreen(runCtx, runner, screen, seedID, log)
	} else {
		summary, err = runner.Run(runCtx, seedID)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted")
		} else {
			ui.PrintError("Crawl failed", err)
		}
		log.WithError(err).Error("Run failed")
		return err
	}

	if !quiet && !useTUI {
		ui.PrintSuccess(fmt.Sprintf("Collected %d users and %d posts", summary.Users, summary.Posts))
		ui.PrintInfo("Output", cfg.Output.Directory)
	}
	log.Debug(tracker.LogProgress())
	return nil
}

// runWithScreen runs the crawl in the background while the screen owns the
// terminal. Quitting the screen early cancels the crawl.
func runWithScreen(ctx context.Context, runner *crawler.Runner, screen *tui.Program, seedID string, log logger.Logger) (*crawler.Summary, error) {
	var (
		summary *crawler.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = runner.Run(ctx, seedID)
		if runErr != nil {
			screen.Fail(runErr)
		}
	}()

	if err := screen.Run(); err != nil {
		log.WithError(err).Warn("Progress screen failed, waiting for the crawl to finish")
	}
	<-done
	return summary, runErr
}

// buildSink opens the JSON files and, when configured, the SQLite database
func buildSink(cfg *config.Config, log logger.Logger) (storage.Sink, error) {
	jsonSink, err := storage.NewJSONSink(cfg.Output.Directory, cfg.Output.UsersFile, cfg.Output.PostsFile, log)
	if err != nil {
		return nil, err
	}
	if cfg.Output.SQLitePath == "" {
		return jsonSink, nil
	}

	db, err := storage.NewSQLiteSink(cfg.Output.SQLitePath, log)
	if err != nil {
		jsonSink.Close()
		return nil, err
	}
	return storage.NewMultiSink(jsonSink, db), nil
}

func storeCredentials(m *auth.Manager, cfg *config.Config, log logger.Logger) {
	if m == nil {
		ui.PrintWarning("No credential store is available, the app password was not saved")
		return
	}

	err := m.Store(&auth.Account{
		Handle:      cfg.AtProto.Username,
		Endpoint:    cfg.AtProto.Endpoint,
		AppPassword: cfg.AtProto.Password,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to save credentials")
		ui.PrintWarning("Could not save the app password: " + err.Error())
		return
	}
	log.WithField("handle", cfg.AtProto.Username).Info("Credentials saved")
}

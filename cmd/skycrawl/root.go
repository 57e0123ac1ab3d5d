package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	quiet      bool
	verbose    bool

	endpoint          string
	username          string
	seed              string
	maxUsers          int
	followerWorkers   int
	feedWorkers       int
	callTimeout       time.Duration
	requestsPerSecond float64
	outputDir         string
	sqlitePath        string
	metricsFile       string
	saveCredentials   bool
	useTUI            bool
	notify            bool
)

var rootCmd = &cobra.Command{
	Use:   "skycrawl",
	Short: "Crawl an AT Protocol follower graph and harvest the authors' feeds",
	Long: `skycrawl walks the follower graph outward from a seed account until it has
discovered a bounded number of accounts, then fetches the recent feed of every
account it found.

Results are written as users.json (a JSON array of handles) and posts.json (a
JSON object keyed by post URI) in the output directory, and optionally into a
SQLite database.

Credentials come from, in order: flags and environment (ATPROTO_USERNAME,
ATPROTO_PASSWORD), the system keychain or encrypted credential file, and an
interactive prompt.`,
	Example: `  # Crawl from your own account with the defaults
  ATPROTO_USERNAME=alice.bsky.social ATPROTO_PASSWORD=xxxx-xxxx-xxxx-xxxx skycrawl

  # Start from another account, stop at 500 users, and keep a SQLite copy
  skycrawl --seed bob.bsky.social --max-users 500 --sqlite crawl.db

  # Watch progress on the full-screen view and remember the app password
  skycrawl --tui --save-credentials`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd)
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "config file (default is .skycrawl.yaml or ~/.config/skycrawl/config.yaml)")
	f.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVarP(&quiet, "quiet", "q", false, "print only the completion line and errors")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	f.StringVar(&endpoint, "endpoint", "", "XRPC endpoint of the PDS (default https://bsky.social/xrpc/)")
	f.StringVarP(&username, "username", "u", "", "handle used to sign in")
	f.StringVar(&seed, "seed", "", "account to start from (default is the signed-in account)")
	f.IntVar(&maxUsers, "max-users", 0, "stop discovering after this many accounts (default 10000)")
	f.IntVar(&followerWorkers, "follower-workers", 0, "concurrent follower requests (default 100)")
	f.IntVar(&feedWorkers, "feed-workers", 0, "concurrent feed requests (default 50)")
	f.DurationVar(&callTimeout, "call-timeout", 0, "deadline for a single fetch (default 30s)")
	f.Float64Var(&requestsPerSecond, "requests-per-second", 0, "client-side request rate limit (default unlimited)")
	f.StringVarP(&outputDir, "output", "o", "", "directory for users.json and posts.json")
	f.StringVar(&sqlitePath, "sqlite", "", "also write results to this SQLite database")
	f.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	f.BoolVar(&saveCredentials, "save-credentials", false, "store the app password after a successful sign-in")
	f.BoolVar(&useTUI, "tui", false, "show the interactive progress screen")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when the run finishes")

	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	rootCmd.SetVersionTemplate(`skycrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandLineFlags collects the flag values in the shape config.Load merges.
// Unset flags keep their zero value and are ignored by the merge.
func commandLineFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"endpoint":            endpoint,
		"username":            username,
		"seed":                seed,
		"max-users":           maxUsers,
		"follower-workers":    followerWorkers,
		"feed-workers":        feedWorkers,
		"call-timeout":        callTimeout,
		"requests-per-second": requestsPerSecond,
		"output":              outputDir,
		"sqlite":              sqlitePath,
		"metrics-file":        metricsFile,
		"log-level":           logLevel,
	}
	if verbose && logLevel == "" {
		flags["log-level"] = "debug"
	}
	if quiet && logLevel == "" {
		flags["log-level"] = "error"
	}
	return flags
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsec/driftwatch/internal/config"
	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/engine"
	"github.com/driftsec/driftwatch/internal/notify"
	"github.com/driftsec/driftwatch/internal/output"
	"github.com/driftsec/driftwatch/internal/recon"
	"github.com/driftsec/driftwatch/internal/store"
	"github.com/driftsec/driftwatch/internal/surface"
	"github.com/driftsec/driftwatch/internal/takeover"
)

// Set via ldflags at build time.
var version = "dev"

const defaultConfigFile = "driftwatch.yml"

func main() {
	output.Version = version

	var (
		configPath  string
		initRun     bool
		jsonOutput  bool
		outPath     string
		baselineDir string
		resolver    string
		concurrency int
		timeout     time.Duration
		axfr        bool
		noColor     bool
		silent      bool
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:   "driftwatch [domains...]",
		Short: "Watch your attack surface for drift",
		Long: "Attack surface monitoring — subdomain discovery, HTTP probing, takeover " +
			"detection, and baseline diffing with notifications on change.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			// Flags override the file.
			flags := cmd.Flags()
			if flags.Changed("baseline-dir") {
				cfg.Monitoring.BaselineDir = baselineDir
			}
			if flags.Changed("resolver") {
				cfg.Discovery.Resolver = resolver
			}
			if flags.Changed("concurrency") {
				cfg.Monitoring.Concurrency = concurrency
			}
			if flags.Changed("timeout") {
				cfg.Monitoring.Timeout = config.Duration(timeout)
				cfg.HTTP.Timeout = config.Duration(timeout)
			}
			if flags.Changed("axfr") {
				cfg.Discovery.AXFR = axfr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			domains, err := targetDomains(args, cfg)
			if err != nil {
				return err
			}
			if len(domains) == 0 {
				return fmt.Errorf("no domains to monitor: pass them as arguments or set targets in the config")
			}

			var outFile *os.File
			if outPath != "" {
				outFile, err = os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create report file: %w", err)
				}
				defer outFile.Close()
			}

			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				noColor = true
			}

			registry, err := takeover.Default()
			if err != nil {
				return fmt.Errorf("load takeover registry: %w", err)
			}

			// Set up context with signal handling for clean Ctrl+C.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
				cancel()
			}()

			showProgress := !jsonOutput && !silent
			progress := output.NewProgress(os.Stderr, verbose, !showProgress, noColor)

			// Wire up stages.
			prober := &recon.Prober{
				Timeout:   cfg.HTTP.Timeout.Std(),
				UserAgent: cfg.HTTP.UserAgent,
				Insecure:  cfg.HTTP.Insecure,
				OnResult:  progress.Tick,
			}
			transports, closeTransports := buildTransports(cfg.Notifications)
			defer closeTransports()

			stages := engine.Stages{
				Discoverer: &recon.Discoverer{
					UserAgent:    cfg.HTTP.UserAgent,
					Progress:     progress,
					CrtSh:        cfg.Discovery.CrtSh,
					HackerTarget: cfg.Discovery.HackerTarget,
					OTX:          cfg.Discovery.OTX,
					Brute:        cfg.Discovery.Brute,
					AXFR:         cfg.Discovery.AXFR,
				},
				Prober: prober,
				Evaluator: &takeover.Pool{
					Evaluator: &takeover.Evaluator{
						Registry: registry,
						Resolver: &recon.CNAMEClient{Server: cfg.Discovery.Resolver},
						Fetcher:  prober,
					},
					Concurrency: cfg.Monitoring.Concurrency,
					OnResult:    progress.Tick,
				},
				Store: &store.FileStore{Dir: cfg.Monitoring.BaselineDir},
				Router: &notify.Router{
					Subscriptions: cfg.Notifications.Subscriptions(),
					Classifier:    cfg.Classifier(),
				},
				Dispatcher: notify.NewDispatcher(cfg.Monitoring.Timeout.Std(), transports...),
			}

			engineCfg := engine.Config{
				Concurrency:  cfg.Monitoring.Concurrency,
				InitBaseline: initRun,
				Diff: diff.Config{
					MinChangePercent: cfg.Monitoring.MinChangePercent,
					Classifier:       cfg.Classifier(),
				},
				Build: surface.BuildConfig{NoiseFilters: cfg.NoiseFilters()},
			}

			if showProgress {
				output.WriteHeader(os.Stderr, noColor)
			}

			failures := 0
			for i, domain := range domains {
				if ctx.Err() != nil {
					break
				}
				if showProgress && len(domains) > 1 {
					if i > 0 {
						fmt.Fprintln(os.Stderr)
					}
					fmt.Fprintf(os.Stderr, "%s\n", domain)
				}

				runCfg := engineCfg
				runCfg.Domain = domain
				report, err := engine.Run(ctx, runCfg, stages, progress)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						break
					}
					fmt.Fprintf(os.Stderr, "driftwatch: %s: %s\n", domain, err)
					failures++
					continue
				}

				if outFile != nil {
					if err := output.WriteJSON(outFile, report); err != nil {
						return err
					}
				}
				if jsonOutput {
					if err := output.WriteJSON(os.Stdout, report); err != nil {
						return err
					}
					continue
				}
				output.WriteTakeovers(os.Stdout, report, noColor)
				if report.BaselineRun {
					output.WriteInventory(os.Stdout, report, noColor)
				} else {
					output.WriteChanges(os.Stdout, report, noColor)
				}
				output.WriteSummary(os.Stdout, report, noColor)
			}

			if showProgress {
				progress.Complete()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d domains failed", failures, len(domains))
			}
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default driftwatch.yml if present)")
	rootCmd.Flags().BoolVar(&initRun, "init", false, "Record a fresh baseline; no change notifications this run")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output structured JSON to stdout")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write JSON reports to a file as well")
	rootCmd.Flags().StringVar(&baselineDir, "baseline-dir", "", "Directory for baseline snapshots (overrides config)")
	rootCmd.Flags().StringVar(&resolver, "resolver", "", "DNS resolver as host:port (overrides config)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Max concurrent workers (overrides config)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-connection timeout (overrides config)")
	rootCmd.Flags().BoolVar(&axfr, "axfr", false, "Attempt DNS zone transfers during discovery")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable terminal colors")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "Results only, no progress output")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose per-stage detail")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("driftwatch {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the named file, or the default one when present, or
// falls back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// targetDomains resolves the domain list: command-line arguments win,
// otherwise the configured targets.
func targetDomains(args []string, cfg *config.Config) ([]string, error) {
	if len(args) == 0 {
		return cfg.Domains()
	}
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range args {
		d := strings.ToLower(strings.TrimSpace(raw))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// buildTransports assembles the enabled delivery transports. The returned
// func closes any transport holding a connection open.
func buildTransports(n config.Notifications) ([]notify.Transport, func()) {
	var transports []notify.Transport
	if n.Slack.Enabled {
		transports = append(transports, &notify.SlackTransport{WebhookURL: n.Slack.WebhookURL})
	}
	if n.Discord.Enabled {
		transports = append(transports, &notify.DiscordTransport{WebhookURL: n.Discord.WebhookURL})
	}
	if n.Telegram.Enabled {
		transports = append(transports, &notify.TelegramTransport{BotToken: n.Telegram.BotToken, ChatID: n.Telegram.ChatID})
	}
	if n.Email.Enabled {
		transports = append(transports, &notify.EmailTransport{
			Host:     n.Email.SMTPHost,
			Port:     n.Email.SMTPPort,
			Username: n.Email.Username,
			Password: n.Email.Password,
			From:     n.Email.From,
			To:       n.Email.To,
		})
	}
	if n.Desktop.Enabled {
		transports = append(transports, notify.DesktopTransport{})
	}
	var stream *notify.StreamTransport
	if n.Stream.Enabled {
		stream = &notify.StreamTransport{URL: n.Stream.URL}
		transports = append(transports, stream)
	}
	closeAll := func() {
		if stream != nil {
			stream.Close()
		}
	}
	return transports, closeAll
}

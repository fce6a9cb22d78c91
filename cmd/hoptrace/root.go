package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KilimcininKorOglu/hoptrace/internal/config"
	"github.com/KilimcininKorOglu/hoptrace/internal/logger"
	"github.com/KilimcininKorOglu/hoptrace/internal/metrics"
	"github.com/KilimcininKorOglu/hoptrace/internal/output"
	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
	"github.com/KilimcininKorOglu/hoptrace/internal/telemetry"
	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
	"github.com/KilimcininKorOglu/hoptrace/internal/tui"
)

const shutdownTimeout = 5 * time.Second

// cli carries the state shared by the commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	cfgPath string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "hoptrace [flags] <hop-limit> <destination>",
		Short: "ICMP Echo path tracer",
		Long: `hoptrace discovers the routers between this host and an IPv4 destination.

It sends one ICMP Echo Request per TTL, from 1 up to the hop limit, and
reports what came back: a Time Exceeded message from a router, an Echo
Reply from the destination, or nothing within the timeout.

Raw ICMP sockets need root or CAP_NET_RAW.

Examples:
  hoptrace 30 8.8.8.8               Probe TTL 1..30 towards 8.8.8.8
  hoptrace --stop-on-reach 30 dns   Use an alias from the config file
  hoptrace -v 15 1.1.1.1            Detailed table after the trace
  hoptrace --json 10 1.1.1.1        JSON output
  hoptrace config --init            Create default config file`,
		Args:              validateArgs,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
		RunE:              c.runTrace,
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "Config file (default: ./hoptrace.yaml or ~/.config/hoptrace/config.yaml)")

	flags := rootCmd.Flags()
	flags.Duration("timeout", probe.DefaultTimeout, "Time to wait for each reply")
	flags.Duration("delay", trace.DefaultDelay, "Pause between probes")
	flags.Int("packet-size", probe.DefaultPacketSize, "Echo request size in bytes")
	flags.String("identifier", "", `Echo identifier: empty for a random token, "pid", or a number`)
	flags.Bool("stop-on-reach", false, "Stop once the destination answered")

	flags.BoolP("verbose", "v", false, "Show detailed table after the trace")
	flags.BoolP("json", "j", false, "Output in JSON format")
	flags.Bool("csv", false, "Output in CSV format")
	flags.BoolP("tui", "t", false, "Interactive TUI mode")
	flags.Bool("no-color", false, "Disable colored output")

	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the trace")
	flags.String("otel-exporter", string(telemetry.None), "Span exporter: none, stdout, otlp")
	flags.String("otel-url", "", "Collector URL for the otlp exporter")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newVersionCmd(c))
	rootCmd.AddCommand(newConfigCmd(c))

	return rootCmd
}

// validateArgs requires exactly a hop limit and a destination.
func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <hop-limit> <destination>, got %d argument(s)", len(args))
	}
	return nil
}

// parseHopLimit parses the first positional argument.
func parseHopLimit(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > trace.MaxHopLimit {
		return 0, fmt.Errorf("%w: %q", trace.ErrInvalidHopLimit, s)
	}
	return n, nil
}

// loadConfig reads .env, the config file and binds flags and HOPTRACE_*
// variables. Precedence: flags, environment, config file, built-in defaults.
func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	if c.cfgFile != "" {
		c.cfg, err = config.LoadFrom(c.cfgFile)
		c.cfgPath = c.cfgFile
	} else {
		c.cfg, c.cfgPath, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	c.v.SetEnvPrefix("hoptrace")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	if err := c.v.BindEnv("log-level", "HOPTRACE_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return err
	}
	if err := c.v.BindEnv("log-format", "HOPTRACE_LOG_FORMAT", "LOG_FORMAT"); err != nil {
		return err
	}
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	d := c.cfg.Defaults
	c.v.SetDefault("timeout", d.Timeout)
	c.v.SetDefault("delay", d.Delay)
	c.v.SetDefault("packet-size", d.PacketSize)
	c.v.SetDefault("identifier", d.Identifier)
	c.v.SetDefault("stop-on-reach", d.StopOnReach)
	c.v.SetDefault("verbose", d.Output == "verbose")
	c.v.SetDefault("json", d.Output == "json")
	c.v.SetDefault("csv", d.Output == "csv")
	c.v.SetDefault("tui", d.Output == "tui")
	c.v.SetDefault("no-color", d.NoColor)
	c.v.SetDefault("metrics-file", d.MetricsFile)
	c.v.SetDefault("otel-exporter", d.Telemetry.Exporter)
	c.v.SetDefault("otel-url", d.Telemetry.URL)
	c.v.SetDefault("log-level", d.LogLevel)
	c.v.SetDefault("log-format", d.LogFormat)

	return nil
}

// traceConfig builds the trace configuration from the bound settings.
func (c *cli) traceConfig(hopLimit int) (*trace.Config, error) {
	id, err := config.ParseIdentifier(c.v.GetString("identifier"))
	if err != nil {
		return nil, err
	}

	tc := trace.DefaultConfig()
	tc.HopLimit = hopLimit
	tc.Timeout = c.v.GetDuration("timeout")
	tc.Delay = c.v.GetDuration("delay")
	tc.PacketSize = c.v.GetInt("packet-size")
	tc.Identifier = id
	tc.StopOnReach = c.v.GetBool("stop-on-reach")

	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

func (c *cli) runTrace(cmd *cobra.Command, args []string) error {
	hopLimit, err := parseHopLimit(args[0])
	if err != nil {
		return err
	}

	target := args[1]
	dest, err := trace.ParseDestination(c.cfg.Resolve(target))
	if err != nil {
		return err
	}

	traceConfig, err := c.traceConfig(hopLimit)
	if err != nil {
		return err
	}

	// arguments are valid, failures from here on are not usage errors
	cmd.SilenceUsage = true

	log := logger.NewLogger(logger.NewHandler(cmd.ErrOrStderr(), c.v.GetString("log-format"), c.v.GetString("log-level")))
	ctx := logger.IntoContext(cmd.Context(), log)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.cfgPath != "" {
		log.DebugContext(ctx, "Using config file", "path", c.cfgPath)
	}

	provider, err := telemetry.Init(ctx, telemetry.Config{
		Exporter: telemetry.Exporter(c.v.GetString("otel-exporter")),
		URL:      c.v.GetString("otel-url"),
		Writer:   cmd.ErrOrStderr(),
		Version:  version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(sctx)
	}()

	m := metrics.New()
	traceConfig.OnHop = m.ObserveHop

	outputConfig := output.Config{Colors: !c.v.GetBool("no-color")}
	format := c.outputFormat()

	log.DebugContext(ctx, "Starting trace",
		"target", target, "destination", dest, "hop_limit", hopLimit,
		"timeout", traceConfig.Timeout, "delay", traceConfig.Delay)

	var result *trace.TraceResult
	var traceErr error
	if c.v.GetBool("tui") {
		styles := tui.DefaultStyles()
		if !outputConfig.Colors {
			styles = tui.PlainStyles()
		}
		result, traceErr = tui.Run(ctx, target, dest, traceConfig, trace.New, styles)
		if traceErr != nil {
			return explain(traceErr)
		}
	} else {
		if format == output.FormatText || format == output.FormatVerbose {
			streamer := output.NewStreamer(outputConfig, cmd.OutOrStdout(), cmd.ErrOrStderr())
			traceConfig.OnSend = streamer.Sending
			traceConfig.OnHop = func(hop *trace.Hop) {
				m.ObserveHop(hop)
				streamer.Hop(hop)
			}
		}

		tracer, err := trace.New(traceConfig)
		if err != nil {
			return explain(err)
		}
		defer tracer.Close()

		result, traceErr = tracer.Trace(ctx, target, dest)
	}

	if result != nil {
		if err := c.writeResult(cmd.OutOrStdout(), format, outputConfig, result); err != nil {
			return err
		}
		log.DebugContext(ctx, "Trace finished",
			"probes", result.Summary.Probes, "responded", result.Summary.Responded,
			"destination_ttl", result.Summary.DestinationTTL, "elapsed", result.Summary.Elapsed)
	}

	if path := c.v.GetString("metrics-file"); path != "" {
		if err := m.WriteFile(path); err != nil {
			return err
		}
	}

	if traceErr != nil {
		return fmt.Errorf("trace interrupted: %w", traceErr)
	}
	return nil
}

// outputFormat picks the whole-result format from the output flags.
func (c *cli) outputFormat() output.Format {
	switch {
	case c.v.GetBool("json"):
		return output.FormatJSON
	case c.v.GetBool("csv"):
		return output.FormatCSV
	case c.v.GetBool("verbose"):
		return output.FormatVerbose
	default:
		return output.FormatText
	}
}

// writeResult prints the whole-result format. Text output was already
// streamed while tracing.
func (c *cli) writeResult(w io.Writer, format output.Format, oc output.Config, result *trace.TraceResult) error {
	if format == output.FormatText {
		return nil
	}
	if format == output.FormatVerbose {
		fmt.Fprintln(w)
	}
	return output.NewWriter(format, oc, w).Write(result)
}

// explain adds a hint to socket permission errors.
func explain(err error) error {
	if probe.IsPermissionError(err) {
		return fmt.Errorf("%w (run as root or grant CAP_NET_RAW)", err)
	}
	return err
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hoptrace %s\n", version)
			fmt.Fprintf(out, "  Commit: %s\n", commit)
			fmt.Fprintf(out, "  Built:  %s\n", date)
			fmt.Fprintf(out, "  Config: %s\n", c.configPath())
		},
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	var initFlag, showFlag, pathFlag bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the hoptrace configuration file.

Commands:
  hoptrace config --init     Create default config file
  hoptrace config --show     Show the effective configuration
  hoptrace config --path     Show config file path`,
		Args: cobra.NoArgs,
		// a --config file that does not exist yet can still be created
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := c.loadConfig(cmd, args)
			if c.cfgFile != "" && errors.Is(err, fs.ErrNotExist) {
				c.cfg = config.DefaultConfig()
				c.cfgPath = ""
				return nil
			}
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case pathFlag:
				fmt.Fprintln(out, c.configPath())
				return nil

			case initFlag:
				path := c.configPath()
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config file already exists: %s", path)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return fmt.Errorf("failed to create config: %w", err)
				}
				if err := os.WriteFile(path, []byte(config.GenerateExample()), 0644); err != nil {
					return fmt.Errorf("failed to create config: %w", err)
				}
				fmt.Fprintf(out, "Created config file: %s\n", path)
				return nil

			case showFlag:
				data, err := yaml.Marshal(c.cfg)
				if err != nil {
					return err
				}
				if c.cfgPath != "" {
					fmt.Fprintf(out, "# %s\n", c.cfgPath)
				} else {
					fmt.Fprintln(out, "# built-in defaults")
				}
				_, err = out.Write(data)
				return err
			}

			return cmd.Help()
		},
	}

	configCmd.Flags().BoolVar(&initFlag, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&showFlag, "show", false, "Show the effective configuration")
	configCmd.Flags().BoolVar(&pathFlag, "path", false, "Show config file path")

	return configCmd
}

// configPath returns the file in use, or where a new one would be created.
func (c *cli) configPath() string {
	switch {
	case c.cfgFile != "":
		return c.cfgFile
	case c.cfgPath != "":
		return c.cfgPath
	default:
		return config.GetConfigPath()
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

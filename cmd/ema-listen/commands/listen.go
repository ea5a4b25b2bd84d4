package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/audio/miniaudio"
	"github.com/koscakluka/ema-realtime/core/capture"
	"github.com/koscakluka/ema-realtime/core/metrics"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/koscakluka/ema-realtime/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var listenFlags struct {
	profile      string
	instructions string
	language     string
	capture      bool
	microphone   bool
	metricsAddr  string
	width        int
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start a realtime session",
	Long: `Start a realtime session and print the assistant's answers.

Typed lines are sent as text messages, lines starting with / are commands
(see /help). System audio capture and the microphone are enabled with flags
or in the config file.

Examples:
  ema-listen listen
  ema-listen listen --profile meeting --capture
  ema-listen listen --mic --instructions "The candidate is interviewing for a Go role"`,
	RunE: runListen,
}

func init() {
	flags := listenCmd.Flags()
	flags.StringVarP(&listenFlags.profile, "profile", "p", "", "prompt profile, see the profiles command")
	flags.StringVarP(&listenFlags.instructions, "instructions", "i", "", "custom instructions appended to the system prompt")
	flags.StringVarP(&listenFlags.language, "language", "l", "", "language the assistant answers in, e.g. en-US")
	flags.BoolVar(&listenFlags.capture, "capture", false, "stream system audio through the capture helper")
	flags.BoolVar(&listenFlags.microphone, "mic", false, "stream the default input device")
	flags.StringVar(&listenFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flags.IntVar(&listenFlags.width, "width", defaultConsoleWidth, "wrap output at this many columns")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyListenFlags(cmd, cfg)
	if cfg.APIKey == "" {
		return fmt.Errorf("%s is not set", config.EnvAPIKey)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	out := newConsole(cmd.OutOrStdout(), listenFlags.width)

	if cfg.Metrics.Enabled {
		server, err := startMetricsServer(cfg.Metrics.Address, registry)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		out.info("metrics on http://" + server.Addr + "/metrics")
	}

	sink, closeSinks, err := newTurnSink(ctx, cfg.Persistence)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSinks(); err != nil {
			out.fail(err)
		}
	}()

	opts := []orchestration.OrchestratorOption{
		orchestration.WithSessionConfig(cfg.Realtime.SessionConfig()),
		orchestration.WithRealtimeOptions(
			realtime.WithEndpoint(cfg.Realtime.Endpoint),
			realtime.WithHandshakeTimeout(cfg.Realtime.HandshakeTimeout),
			realtime.WithWriteWait(cfg.Realtime.WriteWait),
		),
		orchestration.WithLanguage(cfg.Session.Language),
		orchestration.WithCaptureOptions(captureOptions(cfg.Capture)...),
		orchestration.WithTurnSink(sink),
		orchestration.WithMetrics(m),
		orchestration.WithObserver(out.observe),
	}
	if cfg.Microphone.Enabled {
		microphone, err := miniaudio.NewClient()
		if err != nil {
			return fmt.Errorf("failed to open microphone: %w", err)
		}
		opts = append(opts, orchestration.WithMicrophone(microphone))
	}

	o := orchestration.NewOrchestrator(opts...)
	defer func() {
		if err := o.Close(); err != nil {
			out.fail(err)
		}
	}()

	if err := o.StartSession(ctx, cfg.APIKey, cfg.Session.CustomInstructions, cfg.Session.Profile); err != nil {
		return err
	}

	// audio sources failing is not fatal, typed messages still work
	if cfg.Capture.Enabled {
		_ = o.StartCapture(ctx)
	}
	if cfg.Microphone.Enabled {
		_ = o.StartMicrophone(ctx)
	}

	out.info("type a message, /help for commands")
	return runPrompt(ctx, cmd.InOrStdin(), out, o)
}

// applyListenFlags lets explicitly set flags override the config file.
func applyListenFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Session.Profile = listenFlags.profile
	}
	if flags.Changed("instructions") {
		cfg.Session.CustomInstructions = listenFlags.instructions
	}
	if flags.Changed("language") {
		cfg.Session.Language = listenFlags.language
	}
	if flags.Changed("capture") {
		cfg.Capture.Enabled = listenFlags.capture
	}
	if flags.Changed("mic") {
		cfg.Microphone.Enabled = listenFlags.microphone
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = listenFlags.metricsAddr != ""
		cfg.Metrics.Address = listenFlags.metricsAddr
	}
}

func captureOptions(cfg config.CaptureConfig) []capture.SupervisorOption {
	opts := []capture.SupervisorOption{
		capture.WithResourcesDir(cfg.ResourcesDir),
		capture.WithFrameDuration(cfg.FrameDuration),
		capture.WithStaleProcessCleanup(cfg.StaleProcessCleanup()),
	}
	if cfg.BinaryPath != "" {
		opts = append(opts, capture.WithBinaryPath(cfg.BinaryPath))
	}
	return opts
}

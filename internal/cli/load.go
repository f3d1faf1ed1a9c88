package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptcheck/internal/config"
	"github.com/roach88/receiptcheck/internal/load"
)

// AttachmentFlags select the receipt and PDF the attachment commands use.
type AttachmentFlags struct {
	ReceiptID  string
	FiscalCode string
	PDF        string
}

func (f *AttachmentFlags) register(cmd *cobra.Command) {
	registerReceiptID(cmd, &f.ReceiptID)
	cmd.Flags().StringVar(&f.FiscalCode, "fiscal-code", load.DefaultFiscalCode, "fiscal code owning the receipt")
	cmd.Flags().StringVar(&f.PDF, "pdf", "", "PDF file to upload (default: a generated minimal PDF)")
}

func registerReceiptID(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVar(id, "receipt-id", "",
		"receipt id, also used as the PDF blob name (default: "+config.LoadReceiptID+" or "+load.DefaultReceiptID+")")
}

// resolveReceiptID picks the flag, then LOAD_RECEIPT_ID, then the built-in id.
func resolveReceiptID(flag string, cfg *config.Config) string {
	switch {
	case flag != "":
		return flag
	case cfg.LoadReceiptID != "":
		return cfg.LoadReceiptID
	default:
		return load.DefaultReceiptID
	}
}

// scenario builds the attachment scenario against env. The attachments client
// is only required when withClient is set.
func (f *AttachmentFlags) scenario(env *Env, withClient bool) (*load.AttachmentScenario, error) {
	s := &load.AttachmentScenario{
		Datastore:  env.Datastore,
		Blobs:      env.Blobs,
		ReceiptID:  resolveReceiptID(f.ReceiptID, env.Config),
		FiscalCode: f.FiscalCode,
		PDFPath:    f.PDF,
	}
	if withClient {
		client, err := env.Attachments()
		if err != nil {
			return nil, err
		}
		s.Attachments = client
	}
	return s, nil
}

// LoadCommandOptions holds flags for the load command.
type LoadCommandOptions struct {
	*RootOptions
	AttachmentFlags
	MetricsAddr string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadCommandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <options-file>",
		Short: "Run the attachment load scenario",
		Long: `Run the attachment load scenario with the VUs, iterations, duration or
stages of a k6 style options file.

Setup uploads the PDF and seeds the receipt; every iteration fetches the
attachment details and then the attachment; teardown removes both.

Exit codes:
  0 - Every check passed
  1 - One or more checks failed
  2 - Command error (invalid options, configuration, setup failure)

Examples:
  receiptcheck load test-types/load.json --vars dev.environment.json
  receiptcheck load smoke.yaml --pdf receipt.pdf --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	opts.AttachmentFlags.register(cmd)
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func runLoad(opts *LoadCommandOptions, optionsFile string, cmd *cobra.Command) error {
	options, err := load.LoadOptions(optionsFile)
	if err != nil {
		return Fail(CodeInput, "failed to load options", err)
	}
	plan, err := options.Plan()
	if err != nil {
		return Fail(CodeInput, "invalid options", err)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	env, err := Wire(ctx, cfg, logger)
	if err != nil {
		return Fail(CodeBackend, "failed to open backends", err)
	}
	defer env.Close()

	scenario, err := opts.scenario(env, true)
	if err != nil {
		return Fail(CodeConfig, "failed to configure attachments", err)
	}

	f := opts.formatter(cmd)
	f.VerboseLog("plan: %d VUs, %d iterations, duration %s", plan.VUs, plan.Iterations, plan.Duration)

	runner := load.NewRunner(plan, logger)
	if opts.MetricsAddr != "" {
		shutdown, err := serveMetrics(opts.MetricsAddr, runner.Metrics.Handler(), f.GetErrWriter())
		if err != nil {
			return Fail(CodeConfig, "failed to serve metrics", err)
		}
		defer shutdown()
	}

	summary, runErr := load.Run(ctx, runner, scenario)
	if summary == nil {
		return Fail(CodeFixture, "load run failed", runErr)
	}
	if runErr != nil {
		logger.Warn("load run incomplete", "error", runErr)
	}

	if err := outputSummary(f, summary); err != nil {
		return err
	}
	if !summary.ChecksPassed() {
		return Failf(CodeCheckFailed, "one or more checks failed")
	}
	if runErr != nil {
		return Fail(CodeCheckFailed, "load run incomplete", runErr)
	}
	return nil
}

// serveMetrics exposes h at addr/metrics until the returned func is called.
func serveMetrics(addr string, h http.Handler, w io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(w, "metrics server: %v\n", err)
		}
	}()
	fmt.Fprintf(w, "serving metrics on http://%s/metrics\n", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func outputSummary(f *OutputFormatter, s *load.Summary) error {
	if f.Format == "json" {
		return f.Success(s)
	}

	w := f.Writer
	fmt.Fprintf(w, "scenario: %s\n", s.Scenario)
	fmt.Fprintf(w, "elapsed: %s, iterations: %d\n", s.Elapsed.Round(time.Millisecond), s.Iterations)
	fmt.Fprintf(w, "requests: %d, failed: %d (%.2f%%)\n", s.Requests, s.Failed, s.ErrorRate*100)
	for _, l := range s.Latencies {
		fmt.Fprintf(w, "  %s: count=%d p50=%s p95=%s p99=%s\n", l.Request, l.Count, l.P50, l.P95, l.P99)
	}
	fmt.Fprintln(w)
	for _, c := range s.Checks {
		mark := "✓"
		if c.Fails > 0 {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d passed, %d failed)\n", mark, c.Name, c.Passes, c.Fails)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptcheck/internal/load"
)

// SeedResult describes the seeded or removed attachment receipt.
type SeedResult struct {
	ReceiptID  string `json:"receipt_id"`
	FiscalCode string `json:"fiscal_code,omitempty"`
	Action     string `json:"action"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("%s receipt %s", r.Action, r.ReceiptID)
}

// SeedOptions holds flags for the seed and cleanup commands.
type SeedOptions struct {
	*RootOptions
	AttachmentFlags
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the receipt used by the attachment load scenario",
		Long: `Upload the PDF to blob storage and create the receipt pointing at it, so
a load run against another environment can reuse them. Remove them with
"receiptcheck cleanup" and the same --receipt-id.

Examples:
  receiptcheck seed --vars dev.environment.json
  receiptcheck seed --receipt-id perf-1 --pdf receipt.pdf`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	opts.AttachmentFlags.register(cmd)
	return cmd
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the receipt and PDF created by seed",
		Long: `Delete the receipt and its PDF blob. Missing documents are not an error.

Examples:
  receiptcheck cleanup --vars dev.environment.json
  receiptcheck cleanup --receipt-id perf-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	}

	registerReceiptID(cmd, &opts.ReceiptID)
	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	env, err := Wire(cmd.Context(), cfg, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return Fail(CodeBackend, "failed to open backends", err)
	}
	defer env.Close()

	scenario, err := opts.scenario(env, false)
	if err != nil {
		return Fail(CodeConfig, "failed to configure seed", err)
	}
	data, err := scenario.Setup(cmd.Context())
	if err != nil {
		return Fail(CodeFixture, "failed to seed", err)
	}

	return opts.formatter(cmd).Success(SeedResult{
		ReceiptID:  data.ReceiptID,
		FiscalCode: data.FiscalCode,
		Action:     "seeded",
	})
}

func runCleanup(opts *SeedOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	env, err := Wire(cmd.Context(), cfg, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return Fail(CodeBackend, "failed to open backends", err)
	}
	defer env.Close()

	scenario, err := opts.scenario(env, false)
	if err != nil {
		return Fail(CodeConfig, "failed to configure cleanup", err)
	}
	data := load.AttachmentData{ReceiptID: scenario.ReceiptID}
	if err := scenario.Teardown(cmd.Context(), data); err != nil {
		return Fail(CodeFixture, "failed to clean up", err)
	}

	return opts.formatter(cmd).Success(SeedResult{
		ReceiptID: data.ReceiptID,
		Action:    "removed",
	})
}

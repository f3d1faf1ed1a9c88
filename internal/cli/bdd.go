package cli

import (
	"os"

	"github.com/cucumber/godog"
	"github.com/spf13/cobra"

	"github.com/roach88/receiptcheck/internal/bdd"
)

// BDDOptions holds flags for the bdd command.
type BDDOptions struct {
	*RootOptions
	Tags        string // godog tag expression
	GodogFormat string // godog formatter
}

// NewBDDCommand creates the bdd command.
func NewBDDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BDDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bdd [features...]",
		Short: "Run Gherkin feature files against the helpdesk",
		Long: `Run Gherkin feature files with godog against the configured datastore,
blob storage and helpdesk API. Undefined or pending steps fail the run.

Without arguments the ./features directory is used.

Examples:
  receiptcheck bdd
  receiptcheck bdd features/cart_receipt_helpdesk.feature
  receiptcheck bdd --tags '~@wip' --godog-format progress`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBDD(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Tags, "tags", "", "godog tag expression")
	cmd.Flags().StringVar(&opts.GodogFormat, "godog-format", "pretty", "godog formatter (pretty|progress|cucumber|junit)")

	return cmd
}

func runBDD(opts *BDDOptions, paths []string, cmd *cobra.Command) error {
	if len(paths) == 0 {
		paths = []string{"features"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return Failf(CodeInput, "features path not found: %s", p)
		}
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd.ErrOrStderr())

	env, err := Wire(cmd.Context(), cfg, logger)
	if err != nil {
		return Fail(CodeBackend, "failed to open backends", err)
	}
	defer env.Close()

	hd, err := env.Helpdesk()
	if err != nil {
		return Fail(CodeConfig, "failed to configure helpdesk", err)
	}

	workDir, err := os.MkdirTemp("", "receiptcheck-")
	if err != nil {
		return Fail(CodeBackend, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	suite := godog.TestSuite{
		Name:                "receiptcheck",
		ScenarioInitializer: bdd.InitializeScenario(env.StepDeps(hd, workDir), cfg.ScenarioTimeout),
		Options: &godog.Options{
			Format:         opts.GodogFormat,
			Paths:          paths,
			Tags:           opts.Tags,
			Output:         cmd.OutOrStdout(),
			Strict:         true,
			DefaultContext: cmd.Context(),
		},
	}

	if status := suite.Run(); status != 0 {
		return Failf(CodeFeatureFailed, "feature run failed with status %d", status)
	}
	return nil
}

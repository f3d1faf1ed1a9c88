package cli

import (
	"github.com/spf13/cobra"
)

// TokenResult is the token of a fiscal code.
type TokenResult struct {
	FiscalCode string `json:"fiscal_code"`
	Token      string `json:"token"`
}

func (r TokenResult) String() string {
	return r.Token
}

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Search bool
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <fiscal-code>",
		Short: "Tokenize a fiscal code with the PDV tokenizer",
		Long: `Print the tokenizer token of a fiscal code, creating it unless --search
is given. Receipts store these tokens in place of fiscal codes.

Examples:
  receiptcheck token JHNDOE00A01F205N
  receiptcheck token JHNDOE00A01F205N --search --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Search, "search", false, "look up an existing token instead of creating one")
	return cmd
}

func runToken(opts *TokenOptions, fiscalCode string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	env := &Env{Config: cfg, logger: opts.logger(cmd.ErrOrStderr())}
	client, err := env.Tokenizer()
	if err != nil {
		return Fail(CodeConfig, "failed to configure tokenizer", err)
	}

	call := client.CreateToken
	if opts.Search {
		call = client.SearchToken
	}
	token, resp, err := call(cmd.Context(), fiscalCode)
	if err != nil {
		return Fail(CodeService, "tokenizer call failed", err)
	}
	if token == "" {
		return Failf(CodeService, "tokenizer returned status %d without a token", resp.Status)
	}

	return opts.formatter(cmd).Success(TokenResult{FiscalCode: fiscalCode, Token: token})
}

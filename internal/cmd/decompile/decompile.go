// Package decompile provides the decompile command.
package decompile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/fetch"
	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

type decompileOptions struct {
	client *fetch.Client
	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
}

// NewCmdDecompile creates the decompile command.
func NewCmdDecompile() *cobra.Command {
	opts := &decompileOptions{}

	cmd := &cobra.Command{
		Use:   "decompile [file|url]",
		Short: "Convert HTML back to mdmx markdown",
		Long: `Convert HTML into mdmx markdown. htmx buttons become verb links and
text inputs become @input images. Attribute values containing whitespace
cannot be written in the shorthand and are dropped with a warning.

Reads stdin when no file (or -) is given. http(s) URLs are fetched.`,
		Example: `  # Decompile a page
  mdmx decompile page.html

  # Decompile a served page
  mdmx decompile http://localhost:8787/p/shorthand

  # Round trip
  mdmx compile page.mdmx | mdmx decompile`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.stdin = cmd.InOrStdin()
			opts.stdout = cmd.OutOrStdout()
			opts.logger = slog.Default()
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runDecompile(cmd.Context(), path, opts)
		},
	}

	return cmd
}

func runDecompile(ctx context.Context, path string, opts *decompileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		input []byte
		err   error
	)
	switch {
	case path == "" || path == "-":
		input, err = io.ReadAll(opts.stdin)
	case fetch.IsURL(path):
		if opts.client == nil {
			opts.client = fetch.NewClient()
		}
		input, err = opts.client.Get(ctx, path)
	default:
		input, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	markdown, err := mdmx.DecompileWithOptions(string(input), mdmx.DecompileOptions{Logger: opts.logger})
	if err != nil {
		return fmt.Errorf("failed to decompile: %w", err)
	}

	_, err = fmt.Fprintln(opts.stdout, markdown)
	return err
}

// Package root provides the root command for the mdmx CLI.
package root

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/cmd/compile"
	"github.com/open-cli-collective/mdmx/internal/cmd/completion"
	"github.com/open-cli-collective/mdmx/internal/cmd/configcmd"
	"github.com/open-cli-collective/mdmx/internal/cmd/decompile"
	"github.com/open-cli-collective/mdmx/internal/cmd/explain"
	initcmd "github.com/open-cli-collective/mdmx/internal/cmd/init"
	"github.com/open-cli-collective/mdmx/internal/cmd/serve"
	"github.com/open-cli-collective/mdmx/internal/version"
	"github.com/open-cli-collective/mdmx/internal/view"
)

// NewCmdRoot creates the root command for mdmx.
func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdmx",
		Short: "Markdown with htmx controls",
		Long: `mdmx compiles markdown into HTML where a small link and image
shorthand turns into htmx buttons and inputs.

  [Save](POST /api/save "hx-target=#result")   -> <button hx-post=...>
  ![Search](@input:q "keyup changed")          -> <input name="q" ...>
  [email]()                                    -> <input name="email" ...>

Get started by running: mdmx serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(cmd.ErrOrStderr(), verbose)

			output, _ := cmd.Flags().GetString("output")
			return view.ValidateFormat(output)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: ~/.config/mdmx/config.yml)")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, plain")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	cmd.SetVersionTemplate("mdmx version " + version.String() + "\n")

	// Subcommands
	cmd.AddCommand(compile.NewCmdCompile())
	cmd.AddCommand(decompile.NewCmdDecompile())
	cmd.AddCommand(explain.NewCmdExplain())
	cmd.AddCommand(serve.NewCmdServe())
	cmd.AddCommand(initcmd.NewCmdInit())
	cmd.AddCommand(configcmd.NewCmdConfig())
	cmd.AddCommand(completion.NewCmdCompletion())

	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

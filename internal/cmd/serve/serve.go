// Package serve provides the serve command.
package serve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/config"
	"github.com/open-cli-collective/mdmx/internal/server"
	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

type serveOptions struct {
	addr       string
	pagesDir   string
	htmxSrc    string
	watch      bool
	configPath string
}

// NewCmdServe creates the serve command.
func NewCmdServe() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve mdmx pages over HTTP",
		Long: `Serve mdmx pages inside an HTML shell that loads htmx.

GET /           renders index.mdmx
GET /p/{name}   renders {name}.mdmx or {name}.md
POST /api/greet demo endpoint used by the bundled pages

Without --pages the bundled demo pages are served.`,
		Example: `  # Serve the demo
  mdmx serve

  # Serve a directory and pick up edits
  mdmx serve --pages ./pages --watch --addr :3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.configPath, _ = cmd.Flags().GetString("config")
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts.watch)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&opts.pagesDir, "pages", "", "Directory of .mdmx/.md pages")
	cmd.Flags().StringVar(&opts.htmxSrc, "htmx-src", "", "URL of the htmx script")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Reload pages when files change")

	return cmd
}

// resolveConfig layers flags over the config file and environment.
func resolveConfig(cmd *cobra.Command, opts *serveOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("addr") {
		cfg.Addr = opts.addr
	}
	if cmd.Flags().Changed("pages") {
		cfg.PagesDir = opts.pagesDir
	}
	if cmd.Flags().Changed("htmx-src") {
		cfg.HTMXSrc = opts.htmxSrc
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w (run 'mdmx init' to configure)", err)
	}
	return cfg, nil
}

func newServer(cfg *config.Config, watch bool, logger *slog.Logger) *server.Server {
	compiler := mdmx.NewCompiler(
		mdmx.WithLegacyVerbPrefix(cfg.LegacyVerbPrefix),
		mdmx.WithUnsafeHTML(cfg.AllowUnsafeHTML()),
		mdmx.WithCompilerLogger(logger),
	)
	if watch && cfg.PagesDir == "" {
		logger.Warn("--watch has no effect on the embedded pages")
	}
	return server.New(server.Config{
		Addr:     cfg.Addr,
		PagesDir: cfg.PagesDir,
		HTMXSrc:  cfg.HTMXSrc,
		Watch:    watch,
		Compiler: compiler,
		Logger:   logger,
	})
}

func runServe(ctx context.Context, cfg *config.Config, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return newServer(cfg, watch, slog.Default()).Serve(ctx)
}

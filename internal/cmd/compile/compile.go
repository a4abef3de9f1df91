// Package compile provides the compile command.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/open-cli-collective/mdmx/internal/config"
	"github.com/open-cli-collective/mdmx/internal/view"
	"github.com/open-cli-collective/mdmx/internal/watch"
	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

const stdinName = "-"

type compileOptions struct {
	destDir    string
	legacy     bool
	safe       bool
	watch      bool
	configPath string
	noColor    bool
	stdin      io.Reader
	stdout     io.Writer
}

// NewCmdCompile creates the compile command.
func NewCmdCompile() *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <file>...",
		Short: "Compile mdmx markdown to HTML",
		Long: `Compile one or more mdmx markdown files into HTML fragments.

A single file is printed to stdout. Several files are written next to their
sources as <name>.html, or into --dest when set. Use - to read stdin.`,
		Example: `  # Print one page
  mdmx compile page.mdmx

  # Compile a set of pages into a directory
  mdmx compile pages/*.mdmx -d public

  # Recompile on every save
  mdmx compile pages/*.mdmx -d public --watch

  # Read from stdin
  echo '[Go](GET /go)' | mdmx compile -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath, _ = cmd.Flags().GetString("config")
			opts.noColor, _ = cmd.Flags().GetBool("no-color")
			opts.stdin = cmd.InOrStdin()
			opts.stdout = cmd.OutOrStdout()
			return runCompile(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.destDir, "dest", "d", "", "Directory for compiled .html files")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Enable the @verb:path link form")
	cmd.Flags().BoolVar(&opts.safe, "safe", false, "Omit raw HTML from the output")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Recompile inputs when they change")

	return cmd
}

func runCompile(ctx context.Context, files []string, opts *compileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.stdout == nil {
		opts.stdout = os.Stdout
	}

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	compiler := mdmx.NewCompiler(
		mdmx.WithLegacyVerbPrefix(opts.legacy || cfg.LegacyVerbPrefix),
		mdmx.WithUnsafeHTML(cfg.AllowUnsafeHTML() && !opts.safe),
	)

	if len(files) == 1 && files[0] == stdinName {
		if opts.watch {
			return errors.New("--watch cannot be used with stdin")
		}
		return compileStream(compiler, opts.stdin, opts.stdout)
	}
	for _, f := range files {
		if f == stdinName {
			return errors.New("stdin (-) must be the only input")
		}
	}

	if len(files) == 1 && opts.destDir == "" && !opts.watch {
		return compileFileTo(compiler, files[0], opts.stdout)
	}

	renderer := view.NewRenderer(view.FormatTable, opts.noColor)
	renderer.SetWriter(opts.stdout)

	if err := compileFiles(ctx, compiler, files, opts.destDir, renderer); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return watchFiles(ctx, compiler, files, opts.destDir, renderer)
}

func compileStream(c *mdmx.Compiler, r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	out, err := c.Compile(src)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func compileFileTo(c *mdmx.Compiler, path string, w io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, err := c.Compile(src)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", path, err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// outputPath maps an input file to its .html target.
func outputPath(input, destDir string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".html"
	if destDir == "" {
		return filepath.Join(filepath.Dir(input), name)
	}
	return filepath.Join(destDir, name)
}

// compileFiles compiles inputs concurrently. Every file gets its own tree.
func compileFiles(ctx context.Context, c *mdmx.Compiler, files []string, destDir string, renderer *view.Renderer) error {
	if destDir != "" {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	outputs := make([]string, len(files))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range files {
		eg.Go(func() error {
			if egctx.Err() != nil {
				return egctx.Err()
			}
			out := outputPath(file, destDir)
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := compileFileTo(c, file, f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, file := range files {
		renderer.Success(fmt.Sprintf("%s -> %s", file, outputs[i]))
	}
	return nil
}

func watchFiles(ctx context.Context, c *mdmx.Compiler, files []string, destDir string, renderer *view.Renderer) error {
	inputs := make(map[string]string, len(files))
	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		inputs[abs] = f
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	paths := make([]string, 0, len(dirs))
	for d := range dirs {
		paths = append(paths, d)
	}

	w := &watch.Watcher{
		OnChange: func(changed []string) {
			var batch []string
			for _, p := range changed {
				if f, ok := inputs[p]; ok {
					batch = append(batch, f)
				}
			}
			if len(batch) == 0 {
				return
			}
			if err := compileFiles(ctx, c, batch, destDir, renderer); err != nil {
				renderer.Error(err.Error())
			}
		},
	}

	slog.Info("watching for changes", "files", len(files))
	return w.Run(ctx, paths...)
}

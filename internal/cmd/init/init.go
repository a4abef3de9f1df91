// Package init provides the init command for mdmx.
package init

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/config"
)

// NewCmdInit creates the init command.
func NewCmdInit() *cobra.Command {
	var pagesDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize mdmx configuration",
		Long: `Initialize mdmx with the settings used by serve and compile.

This command will guide you through choosing a listen address, a pages
directory, and the htmx script URL. The configuration will be saved to
~/.config/mdmx/config.yml.`,
		Example: `  # Interactive setup
  mdmx init

  # Pre-populate the pages directory
  mdmx init --pages ./pages`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}
			return runInit(configPath, pagesDir)
		},
	}

	cmd.Flags().StringVar(&pagesDir, "pages", "", "Directory of .mdmx/.md pages")

	return cmd
}

func runInit(configPath, prefillPages string) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		err := huh.NewConfirm().
			Title("Configuration already exists").
			Description(fmt.Sprintf("Overwrite %s?", configPath)).
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Initialization cancelled.")
			return nil
		}
	}

	cfg := &config.Config{
		Addr:     config.DefaultAddr,
		HTMXSrc:  config.DefaultHTMXSrc,
		PagesDir: prefillPages,
	}
	unsafe := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Description("Address for mdmx serve").
				Placeholder(config.DefaultAddr).
				Value(&cfg.Addr).
				Validate(validateAddr),

			huh.NewInput().
				Title("Pages directory (optional)").
				Description("Leave empty to serve the bundled demo").
				Placeholder("./pages").
				Value(&cfg.PagesDir).
				Validate(validatePagesDir),

			huh.NewInput().
				Title("htmx script URL").
				Placeholder(config.DefaultHTMXSrc).
				Value(&cfg.HTMXSrc).
				Validate(validateHTMXSrc),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the @verb:path link form?").
				Description("Older pages wrote [label](@post:/path)").
				Value(&cfg.LegacyVerbPrefix),

			huh.NewConfirm().
				Title("Pass raw HTML through?").
				Description("Needed for target elements such as <div id=\"result\">").
				Value(&unsafe),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}
	cfg.UnsafeHTML = &unsafe

	if err := save(cfg, configPath); err != nil {
		return err
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Println("\nYou're all set! Try running:")
	fmt.Println("  mdmx serve")
	fmt.Println("  mdmx explain --rules")

	return nil
}

// save validates and writes the collected configuration.
func save(cfg *config.Config, path string) error {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.PagesDir = strings.TrimSpace(cfg.PagesDir)
	cfg.HTMXSrc = strings.TrimSpace(cfg.HTMXSrc)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg.Save(path)
}

func validateAddr(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("address is required")
	}
	if _, _, err := net.SplitHostPort(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("expected host:port, e.g. %s", config.DefaultAddr)
	}
	return nil
}

func validatePagesDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

func validateHTMXSrc(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

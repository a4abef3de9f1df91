package configcmd

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/config"
	"github.com/open-cli-collective/mdmx/internal/view"
)

type showOptions struct {
	path    string
	output  string
	noColor bool
	writer  io.Writer
}

// NewCmdShow creates the config show command.
func NewCmdShow() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the effective mdmx configuration and where each value comes from.`,
		Example: `  # Show current config
  mdmx config show

  # As JSON
  mdmx config show -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := &showOptions{path: configPath(cmd), writer: cmd.OutOrStdout()}
			opts.output, _ = cmd.Flags().GetString("output")
			opts.noColor, _ = cmd.Flags().GetBool("no-color")
			return runShow(opts)
		},
	}

	return cmd
}

// setting is one row of config show.
type setting struct {
	name  string
	env   string
	value func(*config.Config) string
	isSet func(*config.Config) bool
}

var settings = []setting{
	{
		name:  "addr",
		env:   "MDMX_ADDR",
		value: func(c *config.Config) string { return c.Addr },
		isSet: func(c *config.Config) bool { return c.Addr != "" },
	},
	{
		name:  "pages_dir",
		env:   "MDMX_PAGES_DIR",
		value: func(c *config.Config) string { return c.PagesDir },
		isSet: func(c *config.Config) bool { return c.PagesDir != "" },
	},
	{
		name:  "htmx_src",
		env:   "MDMX_HTMX_SRC",
		value: func(c *config.Config) string { return c.HTMXSrc },
		isSet: func(c *config.Config) bool { return c.HTMXSrc != "" },
	},
	{
		name:  "legacy_verb_prefix",
		env:   "MDMX_LEGACY_VERB_PREFIX",
		value: func(c *config.Config) string { return strconv.FormatBool(c.LegacyVerbPrefix) },
		isSet: func(c *config.Config) bool { return c.LegacyVerbPrefix },
	},
	{
		name:  "unsafe_html",
		env:   "MDMX_UNSAFE_HTML",
		value: func(c *config.Config) string { return strconv.FormatBool(c.AllowUnsafeHTML()) },
		isSet: func(c *config.Config) bool { return c.UnsafeHTML != nil },
	},
}

func runShow(opts *showOptions) error {
	if err := view.ValidateFormat(opts.output); err != nil {
		return err
	}
	renderer := view.NewRenderer(view.Format(opts.output), opts.noColor)
	if opts.writer != nil {
		renderer.SetWriter(opts.writer)
	}

	// Load file config (may not exist)
	fileCfg, fileErr := config.Load(opts.path)
	if fileErr != nil {
		fileCfg = &config.Config{}
	}

	// Load full config with env overrides
	cfg, err := config.LoadWithEnv(opts.path)
	if err != nil {
		return err
	}
	effective := *cfg
	effective.ApplyDefaults()

	envCfg := &config.Config{}
	envCfg.LoadFromEnv()

	rows := make([][]string, 0, len(settings))
	for _, s := range settings {
		rows = append(rows, []string{s.name, s.value(&effective), source(s, envCfg, fileCfg)})
	}
	renderer.RenderTable([]string{"SETTING", "VALUE", "SOURCE"}, rows)

	if renderer.Format() == view.FormatTable {
		renderer.RenderText("")
		renderer.RenderKeyValue("Config file", opts.path)
		if fileErr != nil {
			renderer.Warn("config file not found")
		}
	}
	return nil
}

// source reports where a setting's effective value comes from.
func source(s setting, env, file *config.Config) string {
	switch {
	case s.isSet(env):
		return s.env
	case s.isSet(file):
		return "config"
	default:
		return "default"
	}
}

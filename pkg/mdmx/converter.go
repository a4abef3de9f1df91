// Package mdmx turns markdown links and images written in a small shorthand
// into htmx controls: buttons that call the server and bound text inputs.
package mdmx

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Compiler converts mdmx markdown to HTML fragments.
// A Compiler is safe for concurrent use.
type Compiler struct {
	md goldmark.Markdown
}

type compilerConfig struct {
	rules      []Rule
	unsafe     bool
	logger     *slog.Logger
	extensions []goldmark.Extender
}

// CompilerOption configures a Compiler.
type CompilerOption func(*compilerConfig)

// WithLegacyVerbPrefix enables the @verb:path link form.
func WithLegacyVerbPrefix(enabled bool) CompilerOption {
	return func(c *compilerConfig) {
		if enabled {
			c.rules = LegacyRules
		} else {
			c.rules = nil
		}
	}
}

// WithUnsafeHTML controls whether raw HTML in the source is emitted.
func WithUnsafeHTML(enabled bool) CompilerOption {
	return func(c *compilerConfig) {
		c.unsafe = enabled
	}
}

// WithCompilerLogger sets the logger for rejected nodes.
func WithCompilerLogger(logger *slog.Logger) CompilerOption {
	return func(c *compilerConfig) {
		c.logger = logger
	}
}

// WithExtensions adds goldmark extensions next to the defaults.
func WithExtensions(exts ...goldmark.Extender) CompilerOption {
	return func(c *compilerConfig) {
		c.extensions = append(c.extensions, exts...)
	}
}

// NewCompiler creates a compiler. Raw HTML is allowed unless disabled, so
// pages can declare htmx targets such as <div id="result"></div>.
func NewCompiler(opts ...CompilerOption) *Compiler {
	cfg := &compilerConfig{unsafe: true}
	for _, opt := range opts {
		opt(cfg)
	}

	exts := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		&Extension{Rules: cfg.rules, Logger: cfg.logger},
	}
	exts = append(exts, cfg.extensions...)

	gmOpts := []goldmark.Option{goldmark.WithExtensions(exts...)}
	if cfg.unsafe {
		gmOpts = append(gmOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(gmOpts...)
	return &Compiler{md: md}
}

// Compile converts mdmx markdown to HTML.
func (c *Compiler) Compile(source []byte) (string, error) {
	if len(source) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := c.md.Convert(NormalizeDestinations(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// defaultCompiler is built on first use, once every package variable is set.
var defaultCompiler = sync.OnceValue(func() *Compiler { return NewCompiler() })

// Compile converts mdmx markdown to HTML with the default compiler.
func Compile(source []byte) (string, error) {
	return defaultCompiler().Compile(source)
}

// verbDestination matches an inline link destination that starts with an
// HTTP verb followed by whitespace, e.g. "](POST /api/save".
var verbDestination = regexp.MustCompile(`\]\([ \t]*((?i:GET|POST|PUT|DELETE|PATCH))[ \t]+([^\s()<>"']+)`)

// NormalizeDestinations wraps verb destinations in angle brackets so they
// parse as a single CommonMark destination:
//
//	[Save](POST /api/save "t")  ->  [Save](<POST /api/save> "t")
//
// Fenced code blocks and inline code spans are left untouched.
func NormalizeDestinations(source []byte) []byte {
	if !verbDestination.Match(source) {
		return source
	}

	lines := strings.SplitAfter(string(source), "\n")
	var out strings.Builder
	out.Grow(len(source) + 16)

	var fence string
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if marker := fenceMarker(trimmed, len(line)-len(trimmed)); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence[:1]) && len(marker) >= len(fence):
				fence = ""
			}
			out.WriteString(line)
			continue
		}
		if fence != "" {
			out.WriteString(line)
			continue
		}
		out.WriteString(normalizeLine(line))
	}
	return []byte(out.String())
}

// fenceMarker returns the run of backticks or tildes opening trimmed,
// or "" if the line is not a fence.
func fenceMarker(trimmed string, indent int) string {
	if indent > 3 || len(trimmed) < 3 {
		return ""
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return ""
	}
	return trimmed[:n]
}

// normalizeLine rewrites verb destinations outside code spans.
func normalizeLine(line string) string {
	if !strings.Contains(line, "`") {
		return verbDestination.ReplaceAllString(line, "](<$1 $2>")
	}
	parts := strings.Split(line, "`")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = verbDestination.ReplaceAllString(parts[i], "](<$1 $2>")
	}
	return strings.Join(parts, "`")
}

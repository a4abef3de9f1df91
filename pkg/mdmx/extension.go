package mdmx

import (
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Extension is a goldmark.Extender that turns mdmx shorthand into htmx controls.
//
//	[Save](<POST /api/save> "hx-target=#result")  ->  <button hx-post="/api/save" hx-target="#result">Save</button>
//	![Your name](@input:username)                 ->  <input name="username" type="text" placeholder="Your name">
type Extension struct {
	// Rules overrides the classification grammar. Nil means DefaultRules.
	Rules []Rule
	// Logger receives one warning per document with rejected nodes.
	Logger *slog.Logger
}

// MDMX is an Extension with the default grammar.
var MDMX goldmark.Extender = &Extension{}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	var opts []PipelineOption
	if e.Rules != nil {
		opts = append(opts, WithRules(e.Rules))
	}
	if e.Logger != nil {
		opts = append(opts, WithLogger(e.Logger))
	}

	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&Transformer{Pipeline: NewPipeline(opts...)}, 100),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewRenderer(), 100),
		),
	)
}

package mdmx

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// overridesAttribute is the document attribute holding the side table.
const overridesAttribute = "mdmx-overrides"

// Overrides maps rewritten nodes of one document to their render override.
// A node has at most one override.
type Overrides struct {
	byNode map[ast.Node]*Override
	order  []ast.Node
}

func newOverrides() *Overrides {
	return &Overrides{byNode: make(map[ast.Node]*Override)}
}

func (o *Overrides) set(n ast.Node, ov *Override) {
	if _, ok := o.byNode[n]; !ok {
		o.order = append(o.order, n)
	}
	o.byNode[n] = ov
}

// Lookup returns the override for n.
func (o *Overrides) Lookup(n ast.Node) (*Override, bool) {
	if o == nil {
		return nil, false
	}
	ov, ok := o.byNode[n]
	return ov, ok
}

// Len returns the number of overridden nodes.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.order)
}

// Nodes returns overridden nodes in the order they were rewritten.
func (o *Overrides) Nodes() []ast.Node {
	if o == nil {
		return nil
	}
	return o.order
}

// OverridesOf returns the side table of the document that owns n.
func OverridesOf(n ast.Node) *Overrides {
	for ; n != nil; n = n.Parent() {
		doc, ok := n.(*ast.Document)
		if !ok {
			continue
		}
		v, ok := doc.AttributeString(overridesAttribute)
		if !ok {
			return nil
		}
		ov, _ := v.(*Overrides)
		return ov
	}
	return nil
}

// NodeError records a node the pipeline could not process.
type NodeError struct {
	Kind        ast.NodeKind
	Destination string
	Err         error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s node %q: %v", e.Kind, e.Destination, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// ErrUnexpectedNode is returned for nodes whose kind does not match their type.
var ErrUnexpectedNode = errors.New("unexpected node type")

// Pipeline walks a document and rewrites links and images into controls.
// It holds no per-document state and is safe for concurrent use on distinct trees.
type Pipeline struct {
	classifier *Classifier
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRules replaces the rule table.
func WithRules(rules []Rule) PipelineOption {
	return func(p *Pipeline) {
		p.classifier = NewClassifier(rules)
	}
}

// WithLogger sets the logger used to report rejected nodes.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline using DefaultRules.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		classifier: defaultClassifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifier == nil {
		p.classifier = NewClassifier(DefaultRules)
	}
	return p
}

// Classifier returns the pipeline's classifier.
func (p *Pipeline) Classifier() *Classifier {
	return p.classifier
}

// Transform rewrites doc in a single pass: one sweep over links, then one
// over images, each in document order. The resulting side table is attached
// to doc and returned. Nodes that fail are skipped and reported in the
// joined error; the sweep always completes.
func (p *Pipeline) Transform(doc *ast.Document, source []byte) (*Overrides, error) {
	table := newOverrides()
	var errs []error

	for _, kind := range []ast.NodeKind{ast.KindLink, ast.KindImage} {
		_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering || n.Kind() != kind {
				return ast.WalkContinue, nil
			}
			if err := p.visit(n, source, table); err != nil {
				errs = append(errs, err)
			}
			return ast.WalkContinue, nil
		})
	}

	doc.SetAttributeString(overridesAttribute, table)
	return table, errors.Join(errs...)
}

func (p *Pipeline) visit(n ast.Node, source []byte, table *Overrides) (err error) {
	var t Target
	defer func() {
		if r := recover(); r != nil {
			err = &NodeError{Kind: n.Kind(), Destination: t.Destination, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	t, err = TargetOf(n, source)
	if err != nil {
		return &NodeError{Kind: n.Kind(), Err: err}
	}

	if ov := p.classifier.Explain(t).Override; ov != nil {
		table.set(n, ov)
	}
	return nil
}

// TargetOf extracts the classifier's view of a link or image node.
func TargetOf(n ast.Node, source []byte) (Target, error) {
	switch v := n.(type) {
	case *ast.Link:
		return Target{
			Kind:        KindLink,
			Destination: string(v.Destination),
			Title:       string(v.Title),
			HasTitle:    len(v.Title) > 0,
			Text:        plainText(v, source),
		}, nil
	case *ast.Image:
		return Target{
			Kind:        KindImage,
			Destination: string(v.Destination),
			Title:       string(v.Title),
			HasTitle:    len(v.Title) > 0,
			Text:        plainText(v, source),
		}, nil
	default:
		return Target{}, fmt.Errorf("%w: %T", ErrUnexpectedNode, n)
	}
}

// plainText concatenates the text content below n.
func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// Transformer adapts a Pipeline to goldmark's parser.ASTTransformer.
type Transformer struct {
	Pipeline *Pipeline
}

// Transform implements parser.ASTTransformer.
func (t *Transformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	table, err := t.Pipeline.Transform(doc, reader.Source())
	if err != nil {
		t.Pipeline.logger.Warn("mdmx: skipped malformed nodes",
			"rewritten", table.Len(),
			"error", err)
	}
}

package mdmx

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

// DecompileOptions configures the HTML to mdmx conversion.
type DecompileOptions struct {
	// Logger receives a warning for every attribute that cannot be
	// expressed in an annotation. Nil discards them.
	Logger *slog.Logger
}

// Decompile converts HTML, typically produced by Compile, back to mdmx markdown.
func Decompile(input string) (string, error) {
	return DecompileWithOptions(input, DecompileOptions{})
}

// DecompileWithOptions converts HTML back to mdmx markdown with configurable options.
// htmx buttons become verb links and named text inputs become @input images.
func DecompileWithOptions(input string, opts DecompileOptions) (string, error) {
	if input == "" {
		return "", nil
	}

	d := &decompiler{logger: opts.Logger}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	conv.Register.TagType("button", converter.TagTypeInline, converter.PriorityEarly)
	conv.Register.TagType("input", converter.TagTypeInline, converter.PriorityEarly)
	conv.Register.RendererFor("button", converter.TagTypeInline, d.renderButton, converter.PriorityEarly)
	conv.Register.RendererFor("input", converter.TagTypeInline, d.renderInput, converter.PriorityEarly)

	markdown, err := conv.ConvertString(input)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}

type decompiler struct {
	logger *slog.Logger
}

func (d *decompiler) renderButton(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	verb, path, ok := buttonAction(n)
	if !ok {
		return converter.RenderTryNext
	}

	rest := NewAttributeSet()
	for _, a := range n.Attr {
		if a.Key == "hx-"+verb {
			continue
		}
		d.keep(rest, a)
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(escapeLabel(textContent(n)))
	sb.WriteString("](<")
	sb.WriteString(strings.ToUpper(verb))
	sb.WriteByte(' ')
	sb.WriteString(path)
	sb.WriteByte('>')
	writeTitle(&sb, rest.String())
	sb.WriteByte(')')

	_, _ = w.WriteString(sb.String())
	return converter.RenderSuccess
}

func (d *decompiler) renderInput(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	name, ok := attr(n, "name")
	if !ok || name == "" {
		return converter.RenderTryNext
	}
	if typ, ok := attr(n, "type"); ok && typ != "text" {
		return converter.RenderTryNext
	}
	placeholder, _ := attr(n, "placeholder")
	trigger, _ := attr(n, "hx-trigger")

	for _, a := range n.Attr {
		switch a.Key {
		case "name", "type", "placeholder", "hx-trigger":
		default:
			d.drop(a, "input annotations only carry hx-trigger")
		}
	}

	var sb strings.Builder
	sb.WriteString("![")
	sb.WriteString(escapeLabel(placeholder))
	sb.WriteString("](")
	sb.WriteString(InputMarker)
	sb.WriteByte(':')
	sb.WriteString(name)
	writeTitle(&sb, trigger)
	sb.WriteByte(')')

	_, _ = w.WriteString(sb.String())
	return converter.RenderSuccess
}

// keep adds a to set if it can be written as a single annotation token.
func (d *decompiler) keep(set *AttributeSet, a html.Attribute) {
	if a.Key == ClassKey {
		for _, c := range strings.Fields(a.Val) {
			set.addClass(c)
		}
		return
	}
	if strings.ContainsAny(a.Val, " \t\n\r\f") {
		d.drop(a, "value contains whitespace")
		return
	}
	set.Set(a.Key, a.Val)
}

func (d *decompiler) drop(a html.Attribute, reason string) {
	if d.logger == nil {
		return
	}
	d.logger.Warn("attribute not representable in mdmx",
		"attribute", a.Key,
		"value", a.Val,
		"reason", reason)
}

// buttonAction finds the first hx-<verb> attribute with a recognised verb.
func buttonAction(n *html.Node) (verb, path string, ok bool) {
	for _, a := range n.Attr {
		token, found := strings.CutPrefix(a.Key, "hx-")
		if !found {
			continue
		}
		if v, known := LookupVerb(token); known {
			return v, a.Val, true
		}
	}
	return "", "", false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func escapeLabel(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

func writeTitle(sb *strings.Builder, title string) {
	if title == "" {
		return
	}
	sb.WriteString(` "`)
	sb.WriteString(strings.ReplaceAll(title, `"`, `\"`))
	sb.WriteByte('"')
}

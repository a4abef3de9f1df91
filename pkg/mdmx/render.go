package mdmx

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// funcTable captures the node renderers another NodeRenderer registers.
type funcTable map[ast.NodeKind]renderer.NodeRendererFunc

func (f funcTable) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	f[kind] = fn
}

// Renderer renders links and images that carry an override as controls.
// Every other link or image is handed to goldmark's HTML renderer.
type Renderer struct {
	html     *html.Renderer
	fallback funcTable
}

// NewRenderer creates a Renderer. opts configure the fallback HTML renderer.
func NewRenderer(opts ...html.Option) *Renderer {
	r := &Renderer{fallback: funcTable{}}
	r.html = html.NewRenderer(opts...).(*html.Renderer)
	r.html.RegisterFuncs(r.fallback)
	return r
}

// SetOption forwards goldmark renderer options to the fallback renderer.
func (r *Renderer) SetOption(name renderer.OptionName, value interface{}) {
	r.html.SetOption(name, value)
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *Renderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderNode(ast.KindLink))
	reg.Register(ast.KindImage, r.renderNode(ast.KindImage))
}

func (r *Renderer) renderNode(kind ast.NodeKind) renderer.NodeRendererFunc {
	fallback := r.fallback[kind]
	return func(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
		ov, ok := OverridesOf(n).Lookup(n)
		if !ok {
			return fallback(w, source, n, entering)
		}
		if ov.Void() {
			if entering {
				r.openTag(w, ov)
			}
			return ast.WalkSkipChildren, nil
		}
		if entering {
			r.openTag(w, ov)
		} else {
			_, _ = w.WriteString("</")
			_, _ = w.WriteString(ov.Element)
			_ = w.WriteByte('>')
		}
		return ast.WalkContinue, nil
	}
}

func (r *Renderer) openTag(w util.BufWriter, ov *Override) {
	_ = w.WriteByte('<')
	_, _ = w.WriteString(ov.Element)
	ov.Properties.Each(func(key, value string) {
		if !validAttributeName(key) {
			return
		}
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(key)
		_, _ = w.WriteString(`="`)
		_, _ = w.Write(util.EscapeHTML([]byte(value)))
		_ = w.WriteByte('"')
	})
	if ov.Void() && r.html.XHTML {
		_, _ = w.WriteString(" />")
		return
	}
	_ = w.WriteByte('>')
}

// validAttributeName rejects names that would break out of the tag.
func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == ':', c == '.', c == '@':
		default:
			return false
		}
	}
	return true
}

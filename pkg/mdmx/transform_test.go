package mdmx

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func parse(t *testing.T, src string) (*ast.Document, []byte) {
	t.Helper()
	source := NormalizeDestinations([]byte(src))
	doc, ok := goldmark.New().Parser().Parse(text.NewReader(source)).(*ast.Document)
	require.True(t, ok)
	return doc, source
}

func collect(doc ast.Node, kind ast.NodeKind) []ast.Node {
	var nodes []ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == kind {
			nodes = append(nodes, n)
		}
		return ast.WalkContinue, nil
	})
	return nodes
}

func TestPipeline_Transform(t *testing.T) {
	src := `# Demo

![name](@input:username "keyup changed delay:500ms")

[保存する](POST /api/save "hx-target=#result hx-swap=outerHTML")

[username]() and [docs](https://example.com) and ![logo](/logo.png)

[greet](/api/greet)
`
	doc, source := parse(t, src)
	table, err := NewPipeline().Transform(doc, source)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	links := collect(doc, ast.KindLink)
	require.Len(t, links, 4)

	save, ok := table.Lookup(links[0])
	require.True(t, ok)
	assert.Equal(t, "button", save.Element)
	assert.Equal(t, []kv{{"hx-post", "/api/save"}, {"hx-target", "#result"}, {"hx-swap", "outerHTML"}}, pairs(save.Properties))

	username, ok := table.Lookup(links[1])
	require.True(t, ok)
	assert.Equal(t, []kv{{"name", "username"}, {"type", "text"}, {"placeholder", "username"}}, pairs(username.Properties))

	_, ok = table.Lookup(links[2])
	assert.False(t, ok, "external links keep no override")

	greet, ok := table.Lookup(links[3])
	require.True(t, ok)
	assert.Equal(t, []kv{{"hx-post", "/api/greet"}}, pairs(greet.Properties))

	images := collect(doc, ast.KindImage)
	require.Len(t, images, 2)
	input, ok := table.Lookup(images[0])
	require.True(t, ok)
	assert.Equal(t, "input", input.Element)
	assert.Equal(t, []kv{
		{"name", "username"},
		{"type", "text"},
		{"placeholder", "name"},
		{"hx-trigger", "keyup changed delay:500ms"},
	}, pairs(input.Properties))

	_, ok = table.Lookup(images[1])
	assert.False(t, ok)

	// links are swept before images
	assert.Equal(t, []ast.Node{links[0], links[1], links[3], images[0]}, table.Nodes())
	assert.Same(t, table, OverridesOf(links[0]))
}

func TestPipeline_TransformLeavesNodesIntact(t *testing.T) {
	doc, source := parse(t, "[save](/api/save \"class=btn\")")
	_, err := NewPipeline().Transform(doc, source)
	require.NoError(t, err)

	l := collect(doc, ast.KindLink)[0].(*ast.Link)
	assert.Equal(t, "/api/save", string(l.Destination))
	assert.Equal(t, "class=btn", string(l.Title))
}

func TestPipeline_TransformTwice(t *testing.T) {
	doc, source := parse(t, "[a](https://example.com) [b](/x) ![c](@input:c)")
	p := NewPipeline()

	first, err := p.Transform(doc, source)
	require.NoError(t, err)
	second, err := p.Transform(doc, source)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for _, n := range first.Nodes() {
		a, _ := first.Lookup(n)
		b, ok := second.Lookup(n)
		require.True(t, ok)
		assert.Equal(t, a.Element, b.Element)
		assert.Equal(t, pairs(a.Properties), pairs(b.Properties))
	}
	_, ok := second.Lookup(collect(doc, ast.KindLink)[0])
	assert.False(t, ok)
}

// oddLink claims the link kind without being an *ast.Link.
type oddLink struct {
	ast.BaseInline
}

func (n *oddLink) Kind() ast.NodeKind { return ast.KindLink }

func (n *oddLink) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

func TestPipeline_IsolatesMalformedNodes(t *testing.T) {
	doc := ast.NewDocument()
	para := ast.NewParagraph()
	doc.AppendChild(doc, para)

	para.AppendChild(para, &oddLink{})
	good := ast.NewLink()
	good.Destination = []byte("/api/save")
	good.AppendChild(good, ast.NewString([]byte("Save")))
	para.AppendChild(para, good)

	var logs bytes.Buffer
	p := NewPipeline(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	table, err := p.Transform(doc, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedNode))
	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, ast.KindLink, nodeErr.Kind)

	ov, ok := table.Lookup(good)
	require.True(t, ok)
	assert.Equal(t, "button", ov.Element)
}

func TestTransformer_ReportsOncePerDocument(t *testing.T) {
	doc := ast.NewDocument()
	para := ast.NewParagraph()
	doc.AppendChild(doc, para)
	para.AppendChild(para, &oddLink{})
	para.AppendChild(para, &oddLink{})

	var logs bytes.Buffer
	tr := &Transformer{Pipeline: NewPipeline(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))}
	tr.Transform(doc, text.NewReader(nil), nil)

	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("skipped malformed nodes")))
}

func TestTargetOf_Text(t *testing.T) {
	doc, source := parse(t, "[**bold** `code` text](/x) ![alt *em*](/img.png)")

	lt, err := TargetOf(collect(doc, ast.KindLink)[0], source)
	require.NoError(t, err)
	assert.Equal(t, "bold code text", lt.Text)
	assert.False(t, lt.HasTitle)

	it, err := TargetOf(collect(doc, ast.KindImage)[0], source)
	require.NoError(t, err)
	assert.Equal(t, "alt em", it.Text)
	assert.Equal(t, KindImage, it.Kind)
}

func TestPipeline_ConcurrentDocuments(t *testing.T) {
	p := NewPipeline()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			source := []byte("[a](/a) [b]() ![c](@input:c)")
			doc := goldmark.New().Parser().Parse(text.NewReader(source)).(*ast.Document)
			table, err := p.Transform(doc, source)
			assert.NoError(t, err)
			assert.Equal(t, 3, table.Len())
		}()
	}
	wg.Wait()
}

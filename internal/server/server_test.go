package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/mdmx/internal/testutil"
	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.HTMXSrc == "" {
		cfg.HTMXSrc = "https://example.com/htmx.js"
	}
	// Request logs are written after the response, possibly after the test ends.
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Index(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := get(t, ts, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<script src="https://example.com/htmx.js"></script>`)
	assert.Contains(t, body, `<input name="username" type="text" placeholder="ユーザー名を入力...">`)
	assert.Contains(t, body, `hx-post="/api/greet"`)
	assert.Contains(t, body, `hx-target="#response"`)
	assert.Contains(t, body, `<div id="response"></div>`)
	assert.Contains(t, body, `<a href="https://htmx.org/docs/">htmx docs</a>`)
}

func TestServer_Page(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := get(t, ts, "/p/shorthand")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, `class="btn"`)
	assert.Contains(t, body, `hx-target="#out"`)
}

func TestServer_PageNotFound(t *testing.T) {
	ts := newTestServer(t, Config{})

	for _, path := range []string{"/p/missing", "/p/..%2Fserver", "/p/a.b"} {
		t.Run(path, func(t *testing.T) {
			status, _ := get(t, ts, path)
			assert.Equal(t, http.StatusNotFound, status)
		})
	}
}

func TestServer_PagesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.mdmx"), []byte("[Go](GET /go)"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.md"), []byte("# About"), 0644))

	ts := newTestServer(t, Config{PagesDir: dir})

	status, body := get(t, ts, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<button hx-get="/go">Go</button>`)

	status, body = get(t, ts, "/p/about")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>About</h1>")
}

func TestServer_PreferMDMXOverMD(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.mdmx"), []byte("mdmx"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.md"), []byte("md"), 0644))

	s := New(Config{PagesDir: dir})
	body, err := s.Render("page")
	require.NoError(t, err)
	assert.Equal(t, "<p>mdmx</p>\n", string(body))
}

func TestServer_CacheAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.mdmx")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))

	s := New(Config{PagesDir: dir})
	body, err := s.Render("page")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>\n", string(body))

	require.NoError(t, os.WriteFile(path, []byte("two"), 0644))
	body, err = s.Render("page")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>\n", string(body), "cached page served until invalidated")

	s.Invalidate()
	body, err = s.Render("page")
	require.NoError(t, err)
	assert.Equal(t, "<p>two</p>\n", string(body))
}

func TestServer_SafeCompiler(t *testing.T) {
	ts := newTestServer(t, Config{Compiler: mdmx.NewCompiler(mdmx.WithUnsafeHTML(false))})

	status, body := get(t, ts, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, `<div id="response"></div>`)
	assert.Contains(t, body, "<!-- raw HTML omitted -->")
}

func TestServer_Greet(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name     string
		form     url.Values
		contains string
	}{
		{
			name:     "named",
			form:     url.Values{"username": {"Alice"}},
			contains: "<strong>Alice</strong>",
		},
		{
			name:     "default guest",
			form:     url.Values{},
			contains: "<strong>ゲスト</strong>",
		},
		{
			name:     "blank is guest",
			form:     url.Values{"username": {"   "}},
			contains: "<strong>ゲスト</strong>",
		},
		{
			name:     "escaped",
			form:     url.Values{"username": {"<b>x</b>"}},
			contains: "<strong>&lt;b&gt;x&lt;/b&gt;</strong>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/greet", "application/x-www-form-urlencoded",
				strings.NewReader(tt.form.Encode()))
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestServer_GreetRejectsGet(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, _ := get(t, ts, "/api/greet")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy"}`, body)
}

func TestServer_ServeShutsDown(t *testing.T) {
	s := New(Config{
		Addr:   "127.0.0.1:0",
		Logger: testutil.NewTestLogger(t),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_WatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.mdmx")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))

	s := New(Config{
		Addr:     "127.0.0.1:0",
		PagesDir: dir,
		Watch:    true,
		Logger:   testutil.NewTestLogger(t),
	})
	_, err := s.Render("page")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0644))

	assert.Eventually(t, func() bool {
		body, err := s.Render("page")
		return err == nil && string(body) == "<p>two</p>\n"
	}, 5*time.Second, 50*time.Millisecond)
}

package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/mhtml-inliner/internal/config"
)

const sampleSnapshot = `Content-Type: multipart/related; boundary="----bound"

------bound
Content-Type: text/html
Content-Transfer-Encoding: 7bit
Content-Location: https://example.com/page.html

<html><head><title>Handler Test Page</title></head><body><img src="tiny.png"><iframe src="cid:f1"></iframe></body></html>
------bound
Content-Type: image/png
Content-Transfer-Encoding: base64
Content-Location: https://example.com/tiny.png

aGVsbG8=
------bound
Content-Type: text/html
Content-Transfer-Encoding: 7bit
Content-ID: <f1>

<html><body>frame content</body></html>
------bound--
`

// newTestServer spins up the same router the serve command builds
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	snapDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "page.mht"), []byte(sampleSnapshot), 0644))

	cfg := config.Default()
	cfg.SnapshotsPath = snapDir
	h := New(cfg)

	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/snapshot/*", h.ViewSnapshot)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, snapDir
}

func get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndex_ListsSnapshots(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "page.mht")
	assert.Contains(t, body, "1 snapshot(s)")
}

func TestViewSnapshot_ServesConvertedDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/snapshot/page.mht")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "data:image/png;base64,aGVsbG8=", "The served document must be inlined")
	assert.Contains(t, body, `src="cid:f1"`, "Iframes stay untouched unless enabled")
}

func TestViewSnapshot_IframeToggle(t *testing.T) {
	srv, _ := newTestServer(t)

	_, body := get(t, srv.URL+"/snapshot/page.mht?iframes=1")
	assert.NotContains(t, body, `src="cid:f1"`)
	assert.Contains(t, body, "data:text/html;charset=utf-8,")
}

func TestViewSnapshot_Download(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/snapshot/page.mht?download=1")
	disposition := resp.Header.Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "Handler Test Page.html", "The filename comes from the document title")
}

func TestViewSnapshot_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/snapshot/absent.mht")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveSnapshotPath_RejectsTraversal(t *testing.T) {
	cfg := config.Default()
	cfg.SnapshotsPath = t.TempDir()
	h := New(cfg)

	_, ok := h.resolveSnapshotPath("../../../etc/passwd")
	assert.False(t, ok, "Paths escaping the snapshot root are rejected")

	_, ok = h.resolveSnapshotPath("/etc/passwd")
	assert.False(t, ok, "Absolute paths are rejected")

	_, ok = h.resolveSnapshotPath("")
	assert.False(t, ok)

	full, ok := h.resolveSnapshotPath("sub/page.mht")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(cfg.SnapshotsPath, "sub", "page.mht"), full)
}

func TestViewSnapshot_UnconvertibleInput(t *testing.T) {
	srv, snapDir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "junk.mht"), []byte("not an archive"), 0644))

	resp, _ := get(t, srv.URL+"/snapshot/junk.mht")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

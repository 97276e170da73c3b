package integration

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/mhtml-inliner/internal/batch"
	"github.com/felo/mhtml-inliner/internal/converter"
	"github.com/felo/mhtml-inliner/internal/mhtml"
	"github.com/felo/mhtml-inliner/internal/scanner"
)

// buildSnapshot assembles a realistic capture: an HTML root with a
// stylesheet, an image referenced both from HTML and CSS, and a nested
// frame.
func buildSnapshot() string {
	imgB64 := base64.StdEncoding.EncodeToString([]byte("integration-image-bytes"))
	parts := []string{
		"Content-Type: text/html; charset=utf-8\nContent-Transfer-Encoding: quoted-printable\nContent-Location: https://example.com/article/index.html\n\n" +
			"<html><head><title>Workflow</title><link rel=3D\"stylesheet\" href=3D\"css/site.css\"></head>" +
			"<body><img src=3D\"../media/photo.png\"><iframe src=3D\"cid:ad-frame\"></iframe></body></html>",
		"Content-Type: text/css\nContent-Transfer-Encoding: 7bit\nContent-Location: https://example.com/article/css/site.css\n\n" +
			"body { background: url(../../media/photo.png); }",
		"Content-Type: image/png\nContent-Transfer-Encoding: base64\nContent-Location: https://example.com/media/photo.png\n\n" + imgB64,
		"Content-Type: text/html\nContent-Transfer-Encoding: 7bit\nContent-ID: <ad-frame>\n\n" +
			"<html><body><p>framed</p></body></html>",
	}

	var b strings.Builder
	b.WriteString("From: <Saved by Test>\nMIME-Version: 1.0\n")
	b.WriteString("Content-Type: multipart/related; type=\"text/html\"; boundary=\"----wf\"\n\n")
	for _, p := range parts {
		b.WriteString("------wf\n")
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString("------wf--\n")
	return b.String()
}

// TestEndToEndWorkflow tests the complete workflow from scanning a
// directory of snapshots through conversion to the final inlined output
func TestEndToEndWorkflow(t *testing.T) {
	// Step 1: Set up a directory with one snapshot
	snapDir := t.TempDir()
	outDir := t.TempDir()
	snapshot := buildSnapshot()
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "article.mht"), []byte(snapshot), 0644))

	// Step 2: Scan for snapshot files
	scan := scanner.NewScanner(snapDir)
	files, err := scan.Scan()
	require.NoError(t, err, "Should scan directory")
	assert.Equal(t, []string{"article.mht"}, files)

	// Step 3: Parse the archive and check its shape
	arc, err := mhtml.Parse(snapshot)
	require.NoError(t, err, "Should parse the archive")
	assert.Equal(t, "https://example.com/article/index.html", arc.RootLocation)
	assert.Len(t, arc.Media, 3)
	assert.Len(t, arc.Frames, 1)

	// Step 4: Convert with iframe inlining enabled
	doc, err := converter.Convert(arc, converter.Options{ConvertIframes: true})
	require.NoError(t, err, "Should convert the archive")
	serialized, err := converter.Render(doc)
	require.NoError(t, err)

	imgB64 := base64.StdEncoding.EncodeToString([]byte("integration-image-bytes"))
	assert.NotContains(t, serialized, "photo.png", "No external reference may survive")
	assert.NotContains(t, serialized, "site.css")
	assert.NotContains(t, serialized, "cid:ad-frame")
	assert.Contains(t, serialized, imgB64, "Image bytes must be embedded")

	q := goquery.NewDocumentFromNode(doc)
	assert.True(t, q.Find("head").Children().First().Is("base"))
	assert.Equal(t, 1, q.Find("head style").Length(), "The stylesheet link became an inline style")
	imgSrc, _ := q.Find("img").Attr("src")
	assert.True(t, strings.HasPrefix(imgSrc, "data:image/png;base64,"))
	iframeSrc, _ := q.Find("iframe").Attr("src")
	assert.True(t, strings.HasPrefix(iframeSrc, "data:text/html;charset=utf-8,"))

	// Step 5: The batch converter produces the same self-contained file
	result, err := batch.NewConverter(snapDir, outDir, true, false).ConvertAll()
	require.NoError(t, err, "Should batch-convert")
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 0, result.Failed)

	written, err := os.ReadFile(filepath.Join(outDir, "article.html"))
	require.NoError(t, err)
	assert.Contains(t, string(written), imgB64)
	assert.NotContains(t, string(written), "cid:ad-frame")
}

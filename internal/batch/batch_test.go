package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `Content-Type: multipart/related; boundary="----bound"

------bound
Content-Type: text/html
Content-Transfer-Encoding: 7bit
Content-Location: https://example.com/page.html

<html><head><title>Sample Page</title></head><body><img src="tiny.png"></body></html>
------bound
Content-Type: image/png
Content-Transfer-Encoding: base64
Content-Location: https://example.com/tiny.png

aGVsbG8=
------bound--
`

const brokenSnapshot = "this is not an mhtml archive at all\n"

func TestConvertAll(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(inDir, "good.mht"), []byte(sampleSnapshot), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(inDir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "sub", "also-good.mhtml"), []byte(sampleSnapshot), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "broken.mht"), []byte(brokenSnapshot), 0644))

	c := NewConverter(inDir, outDir, false, false).WithConcurrency(2)
	result, err := c.ConvertAll()
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFound)
	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"broken.mht"}, result.FailedFiles)

	out, err := os.ReadFile(filepath.Join(outDir, "good.html"))
	require.NoError(t, err, "Converted file should exist")
	assert.Contains(t, string(out), "data:image/png;base64,aGVsbG8=", "The image must be inlined")

	_, err = os.Stat(filepath.Join(outDir, "sub", "also-good.html"))
	assert.NoError(t, err, "Nested snapshots keep their relative layout")
}

func TestConvertAll_SkipsExistingOutput(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(inDir, "page.mht"), []byte(sampleSnapshot), 0644))

	c := NewConverter(inDir, outDir, false, false)
	first, err := c.ConvertAll()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Converted)

	second, err := c.ConvertAll()
	require.NoError(t, err)
	assert.Equal(t, 0, second.Converted)
	assert.Equal(t, 1, second.Skipped, "Already-converted snapshots are skipped on re-runs")
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "page.html", outputName("page.mht"))
	assert.Equal(t, "sub/page.html", outputName("sub/page.mhtml"))
}

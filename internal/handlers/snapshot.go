package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	"github.com/felo/mhtml-inliner/internal/converter"
)

// ViewSnapshot converts a snapshot on the fly and serves the resulting
// self-contained document. ?iframes=1 enables nested frame inlining;
// ?download=1 serves the result as an attachment instead.
func (h *Handlers) ViewSnapshot(w http.ResponseWriter, r *http.Request) {
	relPath := chi.URLParam(r, "*")
	fullPath, ok := h.resolveSnapshotPath(relPath)
	if !ok {
		http.Error(w, "Invalid snapshot path", http.StatusBadRequest)
		return
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "Snapshot not found", http.StatusNotFound)
			return
		}
		log.Printf("Error reading snapshot %s: %v", relPath, err)
		http.Error(w, "Failed to read snapshot", http.StatusInternalServerError)
		return
	}

	opts := converter.Options{
		ConvertIframes: h.cfg.ConvertIframes || r.URL.Query().Get("iframes") == "1",
	}
	doc, err := converter.ConvertText(string(raw), opts)
	if err != nil {
		log.Printf("Error converting snapshot %s: %v", relPath, err)
		http.Error(w, "Failed to convert snapshot", http.StatusUnprocessableEntity)
		return
	}

	serialized, err := converter.Render(doc)
	if err != nil {
		log.Printf("Error serializing snapshot %s: %v", relPath, err)
		http.Error(w, "Failed to serialize snapshot", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		filename := downloadFilename(relPath, serialized)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(serialized)); err != nil {
		log.Printf("Error writing response for %s: %v", relPath, err)
	}
}

// resolveSnapshotPath joins the requested name with the snapshot root,
// rejecting anything that escapes it
func (h *Handlers) resolveSnapshotPath(relPath string) (string, bool) {
	if relPath == "" {
		return "", false
	}
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", false
	}
	return filepath.Join(h.scanner.GetRootPath(), cleaned), true
}

// downloadFilename derives an attachment filename from the converted
// document's title, falling back to the snapshot's own name
func downloadFilename(relPath, serialized string) string {
	name := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(serialized)); err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			name = title
		}
	}

	return sanitizeFilename(name) + ".html"
}

// sanitizeFilename removes dangerous characters from download filenames
func sanitizeFilename(filename string) string {
	// Remove path separators
	filename = filepath.Base(filename)

	// Remove any control characters and quotes
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 || r == '"' || r == '\'' || r == '/' || r == '\\' {
			return -1 // Remove character
		}
		return r
	}, filename)

	// Limit length
	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}

	// Fallback if empty
	if cleaned == "" {
		cleaned = "snapshot"
	}

	return cleaned
}

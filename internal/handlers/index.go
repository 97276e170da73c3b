package handlers

import (
	"log"
	"net/http"
)

// Index handles the home page: a list of every snapshot under the
// configured directory
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.scanner.Scan()
	if err != nil {
		log.Printf("Error scanning snapshots: %v", err)
		http.Error(w, "Failed to scan snapshot directory", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Snapshots": snapshots,
		"Root":      h.cfg.SnapshotsPath,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

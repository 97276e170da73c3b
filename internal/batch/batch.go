// Package batch converts every MHTML snapshot under a directory tree
// into a self-contained HTML file, using a pool of concurrent workers.
// Each worker drives the pure parse/convert pipeline on its own archive,
// so conversions never share state.
package batch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/felo/mhtml-inliner/internal/converter"
	"github.com/felo/mhtml-inliner/internal/scanner"
)

// Converter handles directory-wide snapshot conversion
type Converter struct {
	scanner        *scanner.Scanner
	outputDir      string
	convertIframes bool
	verbose        bool
	concurrency    int // Number of concurrent workers
}

// NewConverter creates a batch converter reading snapshots under
// snapshotsPath and writing HTML files under outputDir
func NewConverter(snapshotsPath, outputDir string, convertIframes, verbose bool) *Converter {
	return &Converter{
		scanner:        scanner.NewScanner(snapshotsPath),
		outputDir:      outputDir,
		convertIframes: convertIframes,
		verbose:        verbose,
		concurrency:    runtime.NumCPU() * 2, // 2x CPUs for optimal I/O parallelism
	}
}

// WithConcurrency sets the number of concurrent workers
func (c *Converter) WithConcurrency(workers int) *Converter {
	if workers < 1 {
		workers = 1
	}
	c.concurrency = workers
	return c
}

// Result contains statistics about a batch conversion
type Result struct {
	TotalFound  int
	Converted   int
	Skipped     int
	Failed      int
	FailedFiles []string
}

// ConvertAll scans for snapshots and converts them using concurrent workers
func (c *Converter) ConvertAll() (*Result, error) {
	files, err := c.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan for files: %w", err)
	}

	result := &Result{
		TotalFound:  len(files),
		FailedFiles: make([]string, 0),
	}

	if c.verbose {
		log.Printf("Found %d snapshot files to process with %d workers\n", result.TotalFound, c.concurrency)
	}

	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Create channels for work distribution
	fileChan := make(chan string, len(files))
	resultChan := make(chan fileResult, len(files))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go c.convertWorker(&wg, fileChan, resultChan)
	}

	// Send files to workers
	for _, file := range files {
		fileChan <- file
	}
	close(fileChan)

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	processedCount := 0
	for res := range resultChan {
		processedCount++
		if c.verbose && processedCount%10 == 0 {
			log.Printf("Processing file %d/%d...\n", processedCount, result.TotalFound)
		}

		switch res.status {
		case statusConverted:
			result.Converted++
		case statusSkipped:
			result.Skipped++
		case statusFailed:
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, res.filePath)
		}
	}

	if c.verbose {
		log.Printf("Conversion complete: %d converted, %d skipped, %d failed\n",
			result.Converted, result.Skipped, result.Failed)
	}

	return result, nil
}

type fileStatus int

const (
	statusConverted fileStatus = iota
	statusSkipped
	statusFailed
)

type fileResult struct {
	filePath string
	status   fileStatus
}

// convertWorker processes files from the file channel
func (c *Converter) convertWorker(wg *sync.WaitGroup, fileChan <-chan string, resultChan chan<- fileResult) {
	defer wg.Done()

	for filePath := range fileChan {
		status := c.processFile(filePath)
		resultChan <- fileResult{
			filePath: filePath,
			status:   status,
		}
	}
}

// processFile converts a single snapshot and returns its status
func (c *Converter) processFile(relPath string) fileStatus {
	outPath := filepath.Join(c.outputDir, outputName(relPath))

	// Skip snapshots whose converted file already exists
	if _, err := os.Stat(outPath); err == nil {
		return statusSkipped
	}

	raw, err := os.ReadFile(filepath.Join(c.scanner.GetRootPath(), relPath))
	if err != nil {
		log.Printf("Error reading %s: %v\n", relPath, err)
		return statusFailed
	}

	doc, err := converter.ConvertText(string(raw), converter.Options{ConvertIframes: c.convertIframes})
	if err != nil {
		log.Printf("Error converting %s: %v\n", relPath, err)
		return statusFailed
	}

	serialized, err := converter.Render(doc)
	if err != nil {
		log.Printf("Error serializing %s: %v\n", relPath, err)
		return statusFailed
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		log.Printf("Error creating directory for %s: %v\n", relPath, err)
		return statusFailed
	}
	if err := os.WriteFile(outPath, []byte(serialized), 0644); err != nil {
		log.Printf("Error writing %s: %v\n", outPath, err)
		return statusFailed
	}

	return statusConverted
}

// outputName maps a snapshot's relative path to its converted filename
func outputName(relPath string) string {
	ext := filepath.Ext(relPath)
	return strings.TrimSuffix(relPath, ext) + ".html"
}

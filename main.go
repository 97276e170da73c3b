package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/felo/mhtml-inliner/internal/batch"
	"github.com/felo/mhtml-inliner/internal/config"
	"github.com/felo/mhtml-inliner/internal/converter"
	"github.com/felo/mhtml-inliner/internal/handlers"
)

func main() {
	var convertIframes bool

	rootCmd := &cobra.Command{
		Use:   "mhtml-inliner <input.mht> <output.html>",
		Short: "Convert an MHTML snapshot into a single self-contained HTML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(args[0], args[1], convertIframes)
		},
	}
	rootCmd.Flags().BoolVar(&convertIframes, "iframes", false, "recursively inline cid: iframes")

	var batchWorkers int
	var batchVerbose bool
	convertAllCmd := &cobra.Command{
		Use:   "convert-all <snapshot-dir> <output-dir>",
		Short: "Convert every .mht/.mhtml snapshot under a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvertAll(args[0], args[1], convertIframes, batchWorkers, batchVerbose)
		},
	}
	convertAllCmd.Flags().BoolVar(&convertIframes, "iframes", false, "recursively inline cid: iframes")
	convertAllCmd.Flags().IntVar(&batchWorkers, "workers", 0, "number of concurrent workers (default: 2x CPUs)")
	convertAllCmd.Flags().BoolVarP(&batchVerbose, "verbose", "v", false, "log per-file progress")

	cfg := config.Default()
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Preview snapshots in a browser, converted on the fly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
	serveCmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "address to listen on")
	serveCmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	serveCmd.Flags().StringVar(&cfg.SnapshotsPath, "dir", cfg.SnapshotsPath, "directory containing snapshots")
	serveCmd.Flags().BoolVar(&cfg.ConvertIframes, "iframes", false, "recursively inline cid: iframes")

	rootCmd.AddCommand(convertAllCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runConvert converts a single snapshot file. No partial output: the
// output file is only written once the whole conversion succeeded.
func runConvert(inputPath, outputPath string, convertIframes bool) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	doc, err := converter.ConvertText(string(raw), converter.Options{ConvertIframes: convertIframes})
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", inputPath, err)
	}

	serialized, err := converter.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", inputPath, err)
	}

	if err := os.WriteFile(outputPath, []byte(serialized), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	log.Printf("Converted %s -> %s (%d bytes)", inputPath, outputPath, len(serialized))
	return nil
}

// runConvertAll batch-converts a directory tree of snapshots
func runConvertAll(snapshotDir, outputDir string, convertIframes bool, workers int, verbose bool) error {
	c := batch.NewConverter(snapshotDir, outputDir, convertIframes, verbose)
	if workers > 0 {
		c.WithConcurrency(workers)
	}

	result, err := c.ConvertAll()
	if err != nil {
		return err
	}

	log.Printf("Conversion complete: %d converted, %d skipped, %d failed",
		result.Converted, result.Skipped, result.Failed)
	for _, f := range result.FailedFiles {
		log.Printf("  failed: %s", f)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d snapshot(s) failed to convert", result.Failed)
	}
	return nil
}

// runServe starts the local preview server
func runServe(cfg *config.Config) error {
	if _, err := os.Stat(cfg.SnapshotsPath); os.IsNotExist(err) {
		log.Printf("Snapshots directory not found: %s", cfg.SnapshotsPath)
		log.Printf("Creating directory...")
		if err := os.MkdirAll(cfg.SnapshotsPath, 0755); err != nil {
			return fmt.Errorf("failed to create snapshots directory: %w", err)
		}
		log.Printf("Place your .mht/.mhtml files in %s", cfg.SnapshotsPath)
	}

	h := handlers.New(cfg)

	// Set up router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Routes
	r.Get("/", h.Index)
	r.Get("/snapshot/*", h.ViewSnapshot)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Conversions of large archives take a while
		IdleTimeout:  60 * time.Second,
	}

	// Create shutdown signal channel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.URL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Auto-open browser
	time.Sleep(500 * time.Millisecond) // Give server time to start
	if err := openBrowser(cfg.URL()); err != nil {
		log.Printf("Failed to open browser: %v", err)
		log.Printf("Please open your browser and navigate to: %s", cfg.URL())
	} else {
		log.Printf("Browser opened at: %s", cfg.URL())
	}

	// Wait for interrupt signal
	<-sigChan
	log.Println("\nShutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}

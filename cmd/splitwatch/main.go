// splitwatch submits a composite PDF to the split service and follows
// the job until it finishes, printing progress along the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/client"
	"github.com/FaryzK/filesplittingservice/internal/config"
	"github.com/FaryzK/filesplittingservice/internal/lifecycle"
	"github.com/FaryzK/filesplittingservice/internal/poller"
	"github.com/FaryzK/filesplittingservice/internal/presenter"
)

func main() {
	baseURL := flag.String("base-url", "", "service base URL (defaults to CLIENT_BASE_URL)")
	downloadDir := flag.String("download", "", "download the split documents into this directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: splitwatch [flags] <composite.pdf>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *baseURL == "" {
		*baseURL = cfg.Client.BaseURL
	}

	svc := client.New(*baseURL, client.WithLogger(logger))

	// terminal is signalled once the controller reaches a final state.
	terminal := make(chan lifecycle.View, 1)
	ctrl := lifecycle.New(svc, logger, lifecycle.Options{
		Poll: poller.Options{
			Interval:     cfg.Client.PollInterval,
			FailureLimit: cfg.Client.PollFailureLimit,
		},
		OnChange: func(v lifecycle.View) {
			render(v)
			if v.State == lifecycle.StateCompleted || v.State == lifecycle.StateFailed {
				select {
				case terminal <- v:
				default:
				}
			}
		},
	})

	f, err := os.Open(path)
	if err != nil {
		logger.Fatal("Cannot open input file", zap.Error(err))
	}
	defer f.Close()

	ctx := context.Background()
	if err := ctrl.Submit(ctx, client.UploadPayload{
		Filename: filepath.Base(path),
		Content:  f,
	}); err != nil {
		// The controller already rendered the failure view.
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var final lifecycle.View
	select {
	case final = <-terminal:
	case <-quit:
		fmt.Println("\nInterrupted, abandoning job")
		ctrl.Abandon()
		os.Exit(130)
	}

	if final.State == lifecycle.StateFailed {
		os.Exit(1)
	}

	pres := presenter.New(final.Result, svc, logger)
	items := pres.Items()
	fmt.Printf("\nSplit into %d documents:\n", len(items))
	for i, item := range items {
		fmt.Printf("  %d. %s (pages %d-%d)  %s\n",
			item.ID, item.Filename, item.StartPage, item.EndPage, svc.PreviewURL(item))
		if *downloadDir != "" {
			if err := download(ctx, pres, i, *downloadDir, item.Filename); err != nil {
				logger.Error("Download failed", zap.String("filename", item.Filename), zap.Error(err))
			}
		}
	}
}

func render(v lifecycle.View) {
	switch v.State {
	case lifecycle.StateSubmitting:
		fmt.Println("Submitting...")
	case lifecycle.StatePolling:
		if v.TotalPages > 0 {
			fmt.Printf("\r%-60s %3d%%", v.Message, v.Percentage)
		} else {
			fmt.Printf("\r%-60s", v.Message)
		}
	case lifecycle.StateCompleted:
		fmt.Printf("\r%-60s %3d%%\n", "Processing complete", 100)
	case lifecycle.StateFailed:
		fmt.Printf("\rFailed: %s\n", v.FailureReason)
	}
}

func download(ctx context.Context, pres *presenter.Presenter, i int, dir, filename string) error {
	rc, err := pres.Download(ctx, i)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	fmt.Printf("     saved to %s\n", filepath.Join(dir, filename))
	return nil
}

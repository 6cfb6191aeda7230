package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"monthcal/internal/capture"
	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/web"
)

// baseURL is where this process can reach its own server; wildcard listen
// hosts are reached over loopback.
func baseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func calendarURL(listen string) string {
	return baseURL(listen) + "/calendar"
}

func captureOptions(conf *config.Config) capture.Options {
	opts := capture.Options{
		URL:        calendarURL(conf.Listen),
		OutputPath: conf.Snapshot.Output,
		Width:      conf.Snapshot.Width,
		Height:     conf.Snapshot.Height,
	}
	if ba := conf.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		opts.Headers = map[string]any{
			"Authorization": capture.BasicAuthHeader(ba.Username, ba.Password),
		}
	}
	return opts
}

// captureSnapshot runs one scheduled capture. Failures are logged; the next
// tick retries.
func captureSnapshot(ctx context.Context, conf *config.Config) {
	start := time.Now()
	opts := captureOptions(conf)
	if err := capture.MonthPNG(ctx, opts); err != nil {
		appLog.Error("snapshot capture failed", err, "url", opts.URL)
		return
	}
	appLog.Info("snapshot captured", "output", opts.OutputPath, "duration", time.Since(start).String())
}

// snapshotOnce serves the UI just long enough to capture it.
func snapshotOnce(ctx context.Context, conf *config.Config, srv *web.Server) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(runCtx) }()

	if err := waitHealthy(runCtx, conf.Listen, errCh); err != nil {
		return err
	}

	opts := captureOptions(conf)
	if err := capture.MonthPNG(ctx, opts); err != nil {
		return err
	}
	appLog.Info("snapshot captured", "output", opts.OutputPath)

	stop()
	return <-errCh
}

// waitHealthy polls /health until the server answers.
func waitHealthy(ctx context.Context, listen string, errCh <-chan error) error {
	healthURL := baseURL(listen) + "/health"
	client := &http.Client{Timeout: time.Second}

	deadline := time.After(10 * time.Second)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case err := <-errCh:
			return fmt.Errorf("server exited before snapshot: %w", err)
		case <-deadline:
			return fmt.Errorf("server at %s not healthy after 10s", healthURL)
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

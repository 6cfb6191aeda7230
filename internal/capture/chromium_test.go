package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/calendar", OutputPath: "/tmp/x.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("normalized = %+v", o)
	}

	if err := (&Options{OutputPath: "x"}).normalize(); err == nil {
		t.Error("missing URL accepted")
	}
	if err := (&Options{URL: "x"}).normalize(); err == nil {
		t.Error("missing output accepted")
	}
}

func TestMonthPNGValidatesBeforeLaunching(t *testing.T) {
	if err := MonthPNG(context.Background(), Options{}); err == nil {
		t.Error("expected validation error")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "preview.png")
	if err := writeFileAtomic(path, []byte("png")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Errorf("read back %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestBasicAuthHeader(t *testing.T) {
	if got := BasicAuthHeader("user", "pass"); got != "Basic dXNlcjpwYXNz" {
		t.Errorf("header = %s", got)
	}
}

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/sirupsen/logrus"
)

const artifactTimeFormat = "2006-01-02T15-04-05.000"

// DiagnosticsWriter persists screenshots and markup when a lookup fails
type DiagnosticsWriter struct {
	dir      string
	dumpFile string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewDiagnosticsWriter creates a writer rooted at cfg.Dir
func NewDiagnosticsWriter(cfg config.DiagnosticsConfig, logger *logrus.Logger) *DiagnosticsWriter {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	dumpFile := cfg.DumpFile
	if dumpFile == "" {
		dumpFile = "debug-page.html"
	}
	return &DiagnosticsWriter{dir: dir, dumpFile: dumpFile, logger: logger, now: time.Now}
}

// Dir returns the artifact directory
func (d *DiagnosticsWriter) Dir() string { return d.dir }

// DumpMarkup overwrites the fixed dump file with markup
func (d *DiagnosticsWriter) DumpMarkup(markup string) (string, error) {
	path := filepath.Join(d.dir, d.dumpFile)
	if err := d.write(path, []byte(markup)); err != nil {
		return "", err
	}
	return path, nil
}

// CaptureScreenshot saves a full page screenshot named prefix-<timestamp>.png
func (d *DiagnosticsWriter) CaptureScreenshot(ctx context.Context, page Page, prefix string) (string, error) {
	png, err := page.Screenshot(ctx)
	if err != nil {
		d.logger.WithError(err).WithField("prefix", prefix).Warn("Failed to capture screenshot")
		return "", err
	}
	path := filepath.Join(d.dir, fmt.Sprintf("%s-%s.png", prefix, d.stamp()))
	if err := d.write(path, png); err != nil {
		return "", err
	}
	d.logger.WithField("path", path).Info("Screenshot saved")
	return path, nil
}

// CaptureFailure saves a screenshot and the markup of a failed lookup
// under the same timestamp. It returns whatever it managed to write.
func (d *DiagnosticsWriter) CaptureFailure(ctx context.Context, page Page) []string {
	if page == nil || page.Closed() {
		d.logger.Warn("Page unavailable, skipping failure capture")
		return nil
	}

	stamp := d.stamp()
	var artifacts []string

	if png, err := page.Screenshot(ctx); err != nil {
		d.logger.WithError(err).Warn("Failed to capture failure screenshot")
	} else {
		path := filepath.Join(d.dir, "failure-"+stamp+".png")
		if err := d.write(path, png); err == nil {
			artifacts = append(artifacts, path)
		}
	}

	if markup, err := page.HTML(ctx); err != nil {
		d.logger.WithError(err).Warn("Failed to read failure markup")
	} else {
		path := filepath.Join(d.dir, "failure-"+stamp+".html")
		if err := d.write(path, []byte(markup)); err == nil {
			artifacts = append(artifacts, path)
		}
	}

	if len(artifacts) > 0 {
		d.logger.WithField("artifacts", artifacts).Info("Failure artifacts saved")
	}
	return artifacts
}

func (d *DiagnosticsWriter) stamp() string {
	return d.now().UTC().Format(artifactTimeFormat)
}

func (d *DiagnosticsWriter) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		d.logger.WithError(err).WithField("path", path).Warn("Failed to create diagnostics directory")
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.logger.WithError(err).WithField("path", path).Warn("Failed to write diagnostics artifact")
		return err
	}
	return nil
}

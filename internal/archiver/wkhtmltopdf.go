package archiver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// waitDelay bounds how long a killed renderer may keep its pipes open.
const waitDelay = 2 * time.Second

// WKHTMLToPDF renders pages with the wkhtmltopdf binary.
type WKHTMLToPDF struct {
	Binary string
}

var _ Renderer = (*WKHTMLToPDF)(nil)

// NewWKHTMLToPDF creates a renderer for binary, defaulting to wkhtmltopdf on PATH.
func NewWKHTMLToPDF(binary string) *WKHTMLToPDF {
	if binary == "" {
		binary = "wkhtmltopdf"
	}

	return &WKHTMLToPDF{Binary: binary}
}

// Render runs the binary. The process is killed when ctx is done.
func (w *WKHTMLToPDF) Render(ctx context.Context, url, dest string, options map[string]string) error {
	args := append(BuildArgs(options), url, dest)

	cmd := exec.CommandContext(ctx, w.Binary, args...)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", w.Binary, err, msg)
		}

		return fmt.Errorf("%s: %w", w.Binary, err)
	}

	return nil
}

// BuildArgs maps options to command-line flags in sorted order. An empty
// value produces a bare flag.
func BuildArgs(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)

	for _, k := range keys {
		args = append(args, "--"+strings.TrimLeft(k, "-"))

		if v := options[k]; v != "" {
			args = append(args, v)
		}
	}

	return args
}

// Package attention tracks whether the candidate stays in front of the
// camera and escalates sustained absence into warnings and termination.
package attention

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
)

// Detector reports whether at least one face is present in the frame.
type Detector func(img image.Image) bool

// ActionKind is the escalation outcome of a single observed frame.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionWarn
	ActionTerminate
)

// Action carries the monitor's verdict for one frame. Warnings is the count
// issued so far; Remaining is how many more the candidate may accrue before
// the session ends.
type Action struct {
	Kind      ActionKind
	Warnings  int
	Remaining int
}

// Monitor counts consecutive faceless frames. When the count exceeds the
// threshold it resets and issues a warning; reaching the warning ceiling
// turns every later faceless frame into a terminate verdict.
type Monitor struct {
	detect    Detector
	threshold int
	ceiling   int

	mu       sync.Mutex
	absence  int
	warnings int
}

func NewMonitor(detect Detector, threshold, ceiling int) *Monitor {
	return &Monitor{detect: detect, threshold: threshold, ceiling: ceiling}
}

// Observe feeds one webcam frame into the monitor. A nil detector makes
// Observe a permanent no-op.
func (m *Monitor) Observe(img image.Image) Action {
	if m.detect == nil {
		return Action{Kind: ActionNone}
	}
	present := m.detect(img)

	m.mu.Lock()
	defer m.mu.Unlock()

	if present {
		m.absence = 0
		return Action{Kind: ActionNone, Warnings: m.warnings, Remaining: m.ceiling - m.warnings}
	}

	if m.warnings >= m.ceiling {
		return Action{Kind: ActionTerminate, Warnings: m.warnings}
	}

	m.absence++
	if m.absence <= m.threshold {
		return Action{Kind: ActionNone, Warnings: m.warnings, Remaining: m.ceiling - m.warnings}
	}

	m.absence = 0
	m.warnings++
	if m.warnings >= m.ceiling {
		return Action{Kind: ActionTerminate, Warnings: m.warnings}
	}
	return Action{Kind: ActionWarn, Warnings: m.warnings, Remaining: m.ceiling - m.warnings}
}

// Warnings returns the number of warnings issued so far.
func (m *Monitor) Warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}

// DecodeFrame parses a webcam frame (JPEG or PNG bytes) into an image.
func DecodeFrame(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// minFaceQuality is the cascade score below which a cluster is noise.
const minFaceQuality = 5.0

// NewPigoDetector loads the binary cascade at path and returns a detector
// backed by it. A missing or corrupt cascade is logged and yields a nil
// detector, which disables monitoring rather than failing the gateway.
func NewPigoDetector(path string, logger *slog.Logger) Detector {
	if logger == nil {
		logger = slog.Default()
	}
	cascade, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("face cascade unavailable, attention monitoring disabled", "path", path, "error", err)
		return nil
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		logger.Warn("face cascade unreadable, attention monitoring disabled", "path", path, "error", err)
		return nil
	}

	return func(img image.Image) bool {
		if img == nil {
			return false
		}
		bounds := img.Bounds()
		cols, rows := bounds.Dx(), bounds.Dy()
		if cols == 0 || rows == 0 {
			return false
		}
		pixels := pigo.RgbToGrayscale(img)

		minSize := rows / 10
		if minSize < 20 {
			minSize = 20
		}
		params := pigo.CascadeParams{
			MinSize:     minSize,
			MaxSize:     rows,
			ShiftFactor: 0.1,
			ScaleFactor: 1.1,
			ImageParams: pigo.ImageParams{
				Pixels: pixels,
				Rows:   rows,
				Cols:   cols,
				Dim:    cols,
			},
		}

		dets := classifier.RunCascade(params, 0.0)
		dets = classifier.ClusterDetections(dets, 0.2)
		for _, det := range dets {
			if det.Q > minFaceQuality {
				return true
			}
		}
		return false
	}
}

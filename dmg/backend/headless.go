package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivanmara/dotmatrix/dmg/video"
)

// shadeGlyphs maps the four DMG shades to characters for text snapshots.
var shadeGlyphs = [4]byte{' ', '.', 'o', '#'}

// Headless is the no-display backend used for automated runs and tests.
// It optionally dumps periodic framebuffer snapshots as text files.
type Headless struct {
	config     Config
	frameCount int

	// snapshot settings, zero interval disables
	SnapshotInterval int
	SnapshotDir      string
	ROMName          string
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Init(config Config) error {
	h.config = config
	if h.SnapshotInterval > 0 && h.SnapshotDir != "" {
		if err := os.MkdirAll(h.SnapshotDir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	return nil
}

func (h *Headless) Update(frame *video.FrameBuffer) (uint8, bool, error) {
	h.frameCount++

	if h.SnapshotInterval > 0 && h.frameCount%h.SnapshotInterval == 0 {
		path := filepath.Join(h.SnapshotDir, fmt.Sprintf("%s_frame_%d.txt", h.ROMName, h.frameCount))
		if err := writeSnapshot(frame, path); err != nil {
			return 0, false, err
		}
	}

	return 0, false, nil
}

func (h *Headless) Cleanup() error {
	return nil
}

// writeSnapshot renders the frame as one character per pixel.
func writeSnapshot(frame *video.FrameBuffer, path string) error {
	var sb strings.Builder
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			sb.WriteByte(shadeGlyphs[frame.GetPixel(x, y)&0x03])
		}
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

//go:build !sdl2

package backend

import (
	"errors"

	"github.com/ivanmara/dotmatrix/dmg/video"
)

// SDL2 stub for builds without the sdl2 tag.
type SDL2 struct{}

func NewSDL2() *SDL2 {
	return &SDL2{}
}

func (s *SDL2) Init(config Config) error {
	return errors.New("SDL2 backend not available - build with -tags sdl2 to enable")
}

func (s *SDL2) Update(frame *video.FrameBuffer) (uint8, bool, error) {
	return 0, true, errors.New("SDL2 backend not available")
}

func (s *SDL2) Cleanup() error {
	return nil
}

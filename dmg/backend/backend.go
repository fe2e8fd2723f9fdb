// Package backend holds the host surfaces the core renders into. A backend
// owns presentation and input only: it receives a finished framebuffer once
// per frame and hands back the joypad button mask.
package backend

import "github.com/ivanmara/dotmatrix/dmg/video"

// Button bits in the mask returned by Update, matching the joypad latch
// input order. 1 = pressed.
const (
	ButtonRight uint8 = 1 << iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// Config holds presentation settings shared across backends.
type Config struct {
	Title string
	Scale int
}

// Backend is a complete host platform: rendering plus input.
type Backend interface {
	// Init configures the backend. Required before calling Update.
	Init(config Config) error

	// Update presents the frame and polls platform input. Returns the
	// currently pressed buttons and whether the user asked to quit.
	Update(frame *video.FrameBuffer) (buttons uint8, quit bool, err error)

	// Cleanup releases resources when shutting down.
	Cleanup() error
}

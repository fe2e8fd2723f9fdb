//go:build sdl2

package backend

import (
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ivanmara/dotmatrix/dmg/video"
)

// SDL2 renders into a native window. Building this requires the SDL2
// development libraries; default builds get the stub instead (build tag sdl2).
type SDL2 struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	quit     bool
}

func NewSDL2() *SDL2 {
	return &SDL2{}
}

func (s *SDL2) Init(config Config) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return err
	}

	scale := config.Scale
	if scale <= 0 {
		scale = 3
	}

	window, err := sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(video.FramebufferWidth*scale),
		int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return err
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return err
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING,
		int32(video.FramebufferWidth), int32(video.FramebufferHeight))
	if err != nil {
		return err
	}
	s.texture = texture

	return nil
}

func (s *SDL2) Update(frame *video.FrameBuffer) (uint8, bool, error) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			s.quit = true
		case *sdl.KeyboardEvent:
			if ev.Keysym.Sym == sdl.K_ESCAPE {
				s.quit = true
			}
		}
	}

	pixels := frame.ToRGBA()
	if err := s.texture.Update(nil, unsafe.Pointer(&pixels[0]), video.FramebufferWidth*4); err != nil {
		return 0, s.quit, err
	}
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()

	return pressedButtons(), s.quit, nil
}

func pressedButtons() uint8 {
	keys := sdl.GetKeyboardState()
	var mask uint8
	if keys[sdl.SCANCODE_RIGHT] != 0 {
		mask |= ButtonRight
	}
	if keys[sdl.SCANCODE_LEFT] != 0 {
		mask |= ButtonLeft
	}
	if keys[sdl.SCANCODE_UP] != 0 {
		mask |= ButtonUp
	}
	if keys[sdl.SCANCODE_DOWN] != 0 {
		mask |= ButtonDown
	}
	if keys[sdl.SCANCODE_Z] != 0 {
		mask |= ButtonA
	}
	if keys[sdl.SCANCODE_X] != 0 {
		mask |= ButtonB
	}
	if keys[sdl.SCANCODE_BACKSPACE] != 0 {
		mask |= ButtonSelect
	}
	if keys[sdl.SCANCODE_RETURN] != 0 {
		mask |= ButtonStart
	}
	return mask
}

func (s *SDL2) Cleanup() error {
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}

package backend

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ivanmara/dotmatrix/dmg/video"
)

// keyHoldDuration: terminals deliver key presses but no releases, so a key
// counts as held for a short window after its last event.
const keyHoldDuration = 150 * time.Millisecond

// Terminal renders the framebuffer into a tcell screen using half-block
// characters: each cell shows two vertically stacked pixels via its
// foreground and background colors.
type Terminal struct {
	screen tcell.Screen
	events chan tcell.Event
	quit   bool

	lastPressed map[uint8]time.Time
}

func NewTerminal() *Terminal {
	return &Terminal{
		lastPressed: make(map[uint8]time.Time),
	}
}

func (t *Terminal) Init(config Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	screen.Clear()
	t.screen = screen

	t.events = make(chan tcell.Event, 64)
	go func() {
		for {
			event := screen.PollEvent()
			if event == nil {
				return
			}
			t.events <- event
		}
	}()

	return nil
}

func (t *Terminal) Update(frame *video.FrameBuffer) (uint8, bool, error) {
	t.drainEvents()
	t.render(frame)
	return t.pressedButtons(), t.quit, nil
}

func (t *Terminal) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Terminal) drainEvents() {
	for {
		select {
		case event := <-t.events:
			t.handleEvent(event)
		default:
			return
		}
	}
}

func (t *Terminal) handleEvent(event tcell.Event) {
	switch ev := event.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			t.quit = true
			return
		}
		if button, ok := keyToButton(ev); ok {
			t.lastPressed[button] = time.Now()
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
}

func keyToButton(ev *tcell.EventKey) (uint8, bool) {
	switch ev.Key() {
	case tcell.KeyRight:
		return ButtonRight, true
	case tcell.KeyLeft:
		return ButtonLeft, true
	case tcell.KeyUp:
		return ButtonUp, true
	case tcell.KeyDown:
		return ButtonDown, true
	case tcell.KeyEnter:
		return ButtonStart, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return ButtonSelect, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'z', 'Z':
			return ButtonA, true
		case 'x', 'X':
			return ButtonB, true
		}
	}
	return 0, false
}

func (t *Terminal) pressedButtons() uint8 {
	now := time.Now()
	var mask uint8
	for button, when := range t.lastPressed {
		if now.Sub(when) < keyHoldDuration {
			mask |= button
		} else {
			delete(t.lastPressed, button)
		}
	}
	return mask
}

var shadeStyles = [4]tcell.Color{
	tcell.NewRGBColor(0xFF, 0xFF, 0xFF),
	tcell.NewRGBColor(0x98, 0x98, 0x98),
	tcell.NewRGBColor(0x4C, 0x4C, 0x4C),
	tcell.NewRGBColor(0x00, 0x00, 0x00),
}

// render draws two pixel rows per terminal row with the '▀' half block.
func (t *Terminal) render(frame *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			upper := shadeStyles[frame.GetPixel(x, y)&0x03]
			lower := shadeStyles[frame.GetPixel(x, y+1)&0x03]
			style := tcell.StyleDefault.Foreground(upper).Background(lower)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	t.screen.Show()
}

package memory

import "github.com/ivanmara/dotmatrix/dmg/bit"

// JoypadKey represents a key on the Gameboy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad implements the P1 register.
//
// P1 is a selector: bits 5-4 (active-low, writable) choose whether the low
// nibble reads the button row {Start, Select, B, A} or the d-pad row
// {Down, Up, Left, Right}. Bit 0 is the rightmost key of the row. Pressed
// keys read as 0. Bits 7-6 are unused and always read as 1.
type Joypad struct {
	selection uint8 // bits 5-4 as last written
	buttons   uint8 // active-low row state, bits 3-0 = Start, Select, B, A
	dpad      uint8 // active-low row state, bits 3-0 = Down, Up, Left, Right

	// JoypadInterruptHandler fires on a 1->0 transition of a selected input bit.
	JoypadInterruptHandler func()
}

func NewJoypad() *Joypad {
	// selection bits low (both rows selected) at power-on, P1 reads 0xCF
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
	}
}

func (j *Joypad) Read() byte {
	result := uint8(0b11000000)
	result |= j.selection

	selectDpad := !bit.IsSet(4, j.selection)
	selectButtons := !bit.IsSet(5, j.selection)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		// no row selected, bus floats high
		result |= 0x0F
	}

	return result
}

func (j *Joypad) Write(value byte) {
	// Only the selection bits are writable.
	j.selection = value & 0b00110000
}

// SetButtons applies a full button snapshot, as pushed by the host once per
// frame. Bit order: Right, Left, Up, Down, A, B, Select, Start; 1 = pressed.
func (j *Joypad) SetButtons(state uint8) {
	before := j.Read() & 0x0F

	j.dpad = ^state & 0x0F
	j.buttons = ^(state >> 4) & 0x0F

	after := j.Read() & 0x0F
	if before & ^after != 0 && j.JoypadInterruptHandler != nil {
		j.JoypadInterruptHandler()
	}
}

// Press marks a single key as held down.
func (j *Joypad) Press(key JoypadKey) {
	before := j.Read() & 0x0F

	switch key {
	case JoypadRight, JoypadLeft, JoypadUp, JoypadDown:
		j.dpad = bit.Reset(uint8(key), j.dpad)
	default:
		j.buttons = bit.Reset(uint8(key-JoypadA), j.buttons)
	}

	after := j.Read() & 0x0F
	if before & ^after != 0 && j.JoypadInterruptHandler != nil {
		j.JoypadInterruptHandler()
	}
}

// Release marks a single key as released.
func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight, JoypadLeft, JoypadUp, JoypadDown:
		j.dpad = bit.Set(uint8(key), j.dpad)
	default:
		j.buttons = bit.Set(uint8(key-JoypadA), j.buttons)
	}
}

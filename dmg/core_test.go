package dmg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/memory"
)

// makeROM builds a minimal ROM-only image with the given code at the entry
// point 0x0100.
func makeROM(code ...byte) *memory.Cartridge {
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], code)
	cart, err := memory.NewCartridgeWithData(rom)
	if err != nil {
		panic(err)
	}
	return cart
}

func TestDMG_powerOnState(t *testing.T) {
	d := NewWithCartridge(makeROM(0x00))

	regs := d.GetCPU().Snapshot()
	assert.Equal(t, uint8(0x01), regs.A)
	assert.Equal(t, uint8(0xB0), regs.F)
	assert.Equal(t, uint8(0x00), regs.B)
	assert.Equal(t, uint8(0x13), regs.C)
	assert.Equal(t, uint8(0x00), regs.D)
	assert.Equal(t, uint8(0xD8), regs.E)
	assert.Equal(t, uint8(0x01), regs.H)
	assert.Equal(t, uint8(0x4D), regs.L)
	assert.Equal(t, uint16(0xFFFE), regs.SP)
	assert.Equal(t, uint16(0x0100), regs.PC)

	mmu := d.GetMMU()
	assert.Equal(t, uint8(0xAB), mmu.Read(addr.DIV))
	assert.Equal(t, uint8(0xE1), mmu.Read(addr.IF))
	assert.Equal(t, uint8(0x00), mmu.Read(addr.IE))
	assert.Equal(t, uint8(0xF8), mmu.Read(addr.TAC))
	assert.Equal(t, uint8(0xCF), mmu.Read(addr.P1))
	assert.Equal(t, uint8(0x91), mmu.Read(addr.LCDC))
	assert.Equal(t, uint8(0xFC), mmu.Read(addr.BGP))
	assert.Equal(t, uint8(0xFF), mmu.Read(addr.OBP0))
	assert.Equal(t, uint8(0xFF), mmu.Read(addr.OBP1))
}

func TestDMG_runUntilFrame(t *testing.T) {
	// JP 0x0100: spin forever
	d := NewWithCartridge(makeROM(0xC3, 0x00, 0x01))

	d.RunUntilFrame()

	assert.Equal(t, uint64(1), d.GetFrameCount())
	assert.Greater(t, d.GetInstructionCount(), uint64(0))
}

func TestDMG_componentsAdvanceInLockstep(t *testing.T) {
	d := NewWithCartridge(makeROM(0xC3, 0x00, 0x01))

	total := 0
	for i := 0; i < 1000; i++ {
		cycles := d.Step()
		assert.Equal(t, 0, cycles%4, "T-cycles come in multiples of 4")
		total += cycles
	}

	// the divider saw exactly the cycles the CPU reported
	wantDIV := uint8((0xABCC + total) >> 8)
	assert.Equal(t, wantDIV, d.GetMMU().Read(addr.DIV))
}

func TestDMG_serialCapture(t *testing.T) {
	// write 'H', 'i' to the link port, then spin
	d := NewWithCartridge(makeROM(
		0x3E, 'H', // LD A,'H'
		0xE0, 0x01, // LDH (SB),A
		0x3E, 0x81, // LD A,0x81
		0xE0, 0x02, // LDH (SC),A
		0x3E, 'i', // LD A,'i'
		0xE0, 0x01,
		0x3E, 0x81,
		0xE0, 0x02,
		0xC3, 0x10, 0x01, // JP 0x0110
	))

	d.RunUntilFrame()

	assert.Equal(t, "Hi", d.SerialOutput())
	assert.Equal(t, uint8(0x08), d.GetMMU().Read(addr.IF)&0x08, "serial interrupt raised")
}

func TestDMG_oamDMADuringExecution(t *testing.T) {
	// the program triggers DMA from 0xC1xx and jumps back into ROM; while the
	// transfer runs, work RAM (and the CPU's ROM fetches) read 0xFF, but HRAM
	// stays readable
	d := NewWithCartridge(makeROM(
		0x3E, 0xC1, // LD A,0xC1
		0xE0, 0x46, // LDH (DMA),A
		0xC3, 0x04, 0x01, // JP 0x0104
	))
	mmu := d.GetMMU()

	for i := uint16(0); i < 160; i++ {
		mmu.Write(0xC100+i, uint8(i^0x5A))
	}
	mmu.Write(0xFF85, 0x42)

	d.Step() // LD
	d.Step() // LDH: transfer starts
	require.True(t, mmu.DMAActive())

	assert.Equal(t, uint8(0xFF), mmu.Read(0xC100), "work RAM reads open bus during DMA")
	assert.Equal(t, uint8(0x42), mmu.Read(0xFF85), "HRAM stays accessible")

	for mmu.DMAActive() {
		d.Step()
	}

	// switch the LCD off so OAM is readable regardless of PPU mode
	mmu.Write(addr.LCDC, 0x11)
	for i := uint16(0); i < 160; i++ {
		assert.Equal(t, uint8(i^0x5A), mmu.Read(0xFE00+i))
	}
}

func TestDMG_doctorTrace(t *testing.T) {
	d := NewWithCartridge(makeROM(0xC3, 0x00, 0x01))

	var buf bytes.Buffer
	d.EnableTrace(&buf)

	d.Step()
	d.Step()
	require.NoError(t, d.FlushTrace())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"A:01 F:B0 B:00 C:13 D:00 E:D8 H:01 L:4D SP:FFFE PC:0100 PCMEM:C3,00,01,00",
		lines[0])
	assert.Equal(t, lines[0], lines[1], "the jump loops back to the same state")
}

func TestDMG_traceForcesLY(t *testing.T) {
	d := NewWithCartridge(makeROM(0xC3, 0x00, 0x01))

	var buf bytes.Buffer
	d.EnableTrace(&buf)

	assert.Equal(t, uint8(0x90), d.GetMMU().Read(addr.LY))
}

func TestDMG_frozenCPUKeepsPeripheralsRunning(t *testing.T) {
	// 0xD3 locks the CPU up for good
	d := NewWithCartridge(makeROM(0xD3))

	d.RunUntilFrame()
	assert.True(t, d.GetCPU().IsFrozen())

	// the PPU still completed a frame's worth of work
	assert.Equal(t, uint64(1), d.GetFrameCount())
}

func TestDMG_buttonsReachJoypad(t *testing.T) {
	d := NewWithCartridge(makeROM(0x00))
	mmu := d.GetMMU()

	mmu.Write(addr.P1, 0x20) // select d-pad
	d.SetButtons(0x01)       // Right pressed

	assert.Equal(t, uint8(0xEE), mmu.Read(addr.P1))
	assert.Equal(t, uint8(0x10), mmu.Read(addr.IF)&0x10, "joypad interrupt on press")
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivanmara/dotmatrix/dmg/addr"
)

// fakeVideo lets tests control the PPU lockout state.
type fakeVideo struct {
	vramOK, oamOK bool
	regs          map[uint16]byte
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{vramOK: true, oamOK: true, regs: map[uint16]byte{}}
}

func (f *fakeVideo) ReadRegister(address uint16) byte         { return f.regs[address] }
func (f *fakeVideo) WriteRegister(address uint16, value byte) { f.regs[address] = value }
func (f *fakeVideo) VRAMAccessible() bool                     { return f.vramOK }
func (f *fakeVideo) OAMAccessible() bool                      { return f.oamOK }

func TestMMU_workRAMRoundTrip(t *testing.T) {
	mmu := New()

	mmu.Write(0xC123, 0x42)
	assert.Equal(t, uint8(0x42), mmu.Read(0xC123))

	mmu.Write(0xFF85, 0x99)
	assert.Equal(t, uint8(0x99), mmu.Read(0xFF85), "HRAM round trips")
}

func TestMMU_echoMirrorsWorkRAM(t *testing.T) {
	mmu := New()

	mmu.Write(0xC000, 0x11)
	assert.Equal(t, uint8(0x11), mmu.Read(0xE000))

	mmu.Write(0xFDFF, 0x22)
	assert.Equal(t, uint8(0x22), mmu.Read(0xDDFF))
}

func TestMMU_unusableRegion(t *testing.T) {
	mmu := New()

	mmu.Write(0xFEA0, 0x42)
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFEA0))
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFEFF))
}

func TestMMU_interruptFlagsUpperBits(t *testing.T) {
	mmu := New()

	mmu.Write(addr.IF, 0x00)
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF), "upper 3 bits of IF are open bus")

	mmu.Write(addr.IF, 0x05)
	assert.Equal(t, uint8(0xE5), mmu.Read(addr.IF))
}

func TestMMU_interruptRequestAndClear(t *testing.T) {
	mmu := New()
	mmu.Write(addr.IE, 0x1F)

	mmu.RequestInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(0x04), mmu.PendingInterrupts())

	mmu.ClearInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(0x00), mmu.PendingInterrupts())
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF))
}

func TestMMU_pendingMasksWithIE(t *testing.T) {
	mmu := New()

	mmu.RequestInterrupt(addr.VBlankInterrupt)
	assert.Equal(t, uint8(0x00), mmu.PendingInterrupts(), "IF alone does not make an interrupt pending")

	mmu.Write(addr.IE, 0x01)
	assert.Equal(t, uint8(0x01), mmu.PendingInterrupts())
}

func TestMMU_vramBlockedDuringMode3(t *testing.T) {
	mmu := New()
	video := newFakeVideo()
	mmu.AttachVideo(video)

	mmu.Write(0x8000, 0x42)
	assert.Equal(t, uint8(0x42), mmu.Read(0x8000))

	video.vramOK = false
	assert.Equal(t, uint8(0xFF), mmu.Read(0x8000), "blocked reads return 0xFF")
	mmu.Write(0x8000, 0x99)

	video.vramOK = true
	assert.Equal(t, uint8(0x42), mmu.Read(0x8000), "blocked writes are dropped")
}

func TestMMU_oamBlockedDuringScanAndTransfer(t *testing.T) {
	mmu := New()
	video := newFakeVideo()
	mmu.AttachVideo(video)

	mmu.Write(0xFE00, 0x42)
	assert.Equal(t, uint8(0x42), mmu.Read(0xFE00))

	video.oamOK = false
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFE00))
	mmu.Write(0xFE00, 0x99)

	video.oamOK = true
	assert.Equal(t, uint8(0x42), mmu.Read(0xFE00))
}

func TestMMU_videoRegisterRouting(t *testing.T) {
	mmu := New()
	video := newFakeVideo()
	mmu.AttachVideo(video)

	mmu.Write(addr.LCDC, 0x91)
	assert.Equal(t, uint8(0x91), video.regs[addr.LCDC])
	assert.Equal(t, uint8(0x91), mmu.Read(addr.LCDC))
}

func TestMMU_audioRangeIsOpenBus(t *testing.T) {
	mmu := New()

	mmu.Write(0xFF26, 0x80)
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFF26))
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFF10))
	assert.Equal(t, uint8(0xFF), mmu.Read(0xFF3F))
}

func TestMMU_traceLYReadPath(t *testing.T) {
	mmu := New()
	video := newFakeVideo()
	video.regs[addr.LY] = 0x05
	mmu.AttachVideo(video)

	assert.Equal(t, uint8(0x05), mmu.Read(addr.LY))

	mmu.SetTraceLY(true)
	assert.Equal(t, uint8(0x90), mmu.Read(addr.LY))
	assert.Equal(t, uint8(0x05), video.regs[addr.LY], "the PPU state is untouched")
}

func TestMMU_oamDMA(t *testing.T) {
	mmu := New()

	for i := uint16(0); i < 160; i++ {
		mmu.Write(0xC100+i, uint8(i))
	}

	mmu.Write(addr.DMA, 0xC1)
	assert.True(t, mmu.DMAActive())
	assert.Equal(t, uint8(0xC1), mmu.Read(addr.DMA), "the register reads back the last value")

	t.Run("bus is locked to the CPU during the transfer", func(t *testing.T) {
		assert.Equal(t, uint8(0xFF), mmu.Read(0xC100))
		assert.Equal(t, uint8(0xFF), mmu.Read(0xFE00))

		mmu.Write(0xFF85, 0x42)
		assert.Equal(t, uint8(0x42), mmu.Read(0xFF85), "HRAM stays accessible")
	})

	t.Run("one byte copied per 4 cycles", func(t *testing.T) {
		mmu.Tick(4 * 10)
		assert.True(t, mmu.DMAActive())

		mmu.Tick(4 * 150)
		assert.False(t, mmu.DMAActive())
	})

	t.Run("OAM holds the source bytes afterwards", func(t *testing.T) {
		for i := uint16(0); i < 160; i++ {
			assert.Equal(t, uint8(i), mmu.Read(0xFE00+i))
		}
	})
}

func TestMMU_dmaRestart(t *testing.T) {
	mmu := New()
	mmu.Write(0xC000, 0xAA)
	mmu.Write(0xD000, 0xBB)

	mmu.Write(addr.DMA, 0xC0)
	mmu.Tick(40)

	// restarting mid-flight switches to the new source
	mmu.Write(addr.DMA, 0xD0)
	mmu.Tick(640)

	assert.False(t, mmu.DMAActive())
	assert.Equal(t, uint8(0xBB), mmu.Read(0xFE00))
}

func TestMMU_noCartridgeReads(t *testing.T) {
	mmu := New()
	assert.Equal(t, uint8(0xFF), mmu.Read(0x0100))
	assert.Equal(t, uint8(0xFF), mmu.Read(0xA000))
}

func TestMMU_cartridgeRouting(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x3C
	rom[cartridgeTypeAddress] = 0x00
	cart, err := NewCartridgeWithData(rom)
	assert.NoError(t, err)

	mmu := NewWithCartridge(cart)
	assert.Equal(t, uint8(0x3C), mmu.Read(0x0100))
}

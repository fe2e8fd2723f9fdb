package video

import (
	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/bit"
)

// Memory is the GPU's window into the rest of the machine: raw VRAM/OAM
// access (the PPU is never blocked by its own lockouts) and the interrupt
// flags.
type Memory interface {
	VRAMByte(address uint16) byte
	OAMByte(address uint16) byte
	RequestInterrupt(interrupt addr.Interrupt)
}

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode uint8

const (
	// hblankMode (Mode 0): horizontal blank, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): vertical blank, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamScanMode (Mode 2): PPU is reading OAM, CPU cannot access OAM
	oamScanMode GpuMode = 2
	// pixelTransferMode (Mode 3): pixels are being pushed to the LCD,
	// CPU cannot access VRAM or OAM
	pixelTransferMode GpuMode = 3
)

const (
	oamScanDots  = 80
	dotsPerLine  = 456
	visibleLines = 144
	totalLines   = 154
	// DotsPerFrame is the length of one full frame in T-cycles.
	DotsPerFrame = dotsPerLine * totalLines
)

// LCDC (LCD Control) register bits.
const (
	lcdcDisplayEnable       = 7
	lcdcWindowTileMapSelect = 6
	lcdcWindowEnable        = 5
	lcdcTileDataSelect      = 4
	lcdcBGTileMapSelect     = 3
	lcdcSpriteSize          = 2
	lcdcSpriteEnable        = 1
	lcdcBGEnable            = 0
)

// STAT register bits. Bits 6-3 select interrupt sources, they are ORed into
// a single line; bit 2 is the LY=LYC coincidence, bits 1-0 the mode.
const (
	statLycIrq    = 6
	statOamIrq    = 5
	statVblankIrq = 4
	statHblankIrq = 3
)

// GPU drives the 154-line frame state machine dot by dot, rendering through
// a background fetcher + pixel FIFO into a 160x144 shade framebuffer.
type GPU struct {
	memory      Memory
	framebuffer *FrameBuffer

	// registers
	lcdc      uint8
	statFlags uint8 // writable STAT bits 6-3
	scy, scx  uint8
	ly, lyc   uint8
	bgp       uint8
	obp0      uint8
	obp1      uint8
	wy, wx    uint8

	mode GpuMode
	dot  int // dot counter within the current line (0..455)

	// statLine is the single combined STAT interrupt wire. Only a 0->1
	// transition requests an interrupt; further edges while it stays high
	// are swallowed ("STAT blocking").
	statLine bool

	frameReady bool

	// pixel pipeline state for the line being drawn
	fetcher fetcher
	bgFifo  pixelFIFO
	objFifo objFIFO
	lcdX    int
	discard int // SCX fine-scroll pixels left to drop
	stall   int // dots the pipeline is paused for sprite fetches

	// window state
	windowLine   int  // private line counter, counts only rendered window lines
	windowActive bool // window took over on the current line
	wyReached    bool // LY has matched WY during this frame

	sprites []sprite
}

// NewGpu creates a GPU in the post-boot state (mid-VBlank, LCD on).
func NewGpu(memory Memory) *GPU {
	return &GPU{
		memory:      memory,
		framebuffer: NewFrameBuffer(),
		lcdc:        0x91,
		statFlags:   0x81 & 0x78,
		bgp:         0xFC,
		obp0:        0xFF,
		obp1:        0xFF,
		mode:        vblankMode,
		sprites:     make([]sprite, 0, 10),
	}
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Mode returns the current PPU mode.
func (g *GPU) Mode() GpuMode {
	return g.mode
}

// LY returns the current scanline.
func (g *GPU) LY() uint8 {
	return g.ly
}

// ConsumeFrameReady reports whether a frame completed since the last call.
func (g *GPU) ConsumeFrameReady() bool {
	ready := g.frameReady
	g.frameReady = false
	return ready
}

func (g *GPU) enabled() bool {
	return bit.IsSet(lcdcDisplayEnable, g.lcdc)
}

// VRAMAccessible reports whether the CPU may touch VRAM right now.
func (g *GPU) VRAMAccessible() bool {
	return !g.enabled() || g.mode != pixelTransferMode
}

// OAMAccessible reports whether the CPU may touch OAM right now.
func (g *GPU) OAMAccessible() bool {
	return !g.enabled() || g.mode == hblankMode || g.mode == vblankMode
}

// Tick advances the PPU by the given number of T-cycles (dots).
func (g *GPU) Tick(cycles int) {
	if !g.enabled() {
		return
	}
	for i := 0; i < cycles; i++ {
		g.step()
	}
}

// step advances exactly one dot.
func (g *GPU) step() {
	if g.mode == pixelTransferMode {
		g.stepTransfer()
	}

	g.dot++
	switch g.mode {
	case oamScanMode:
		if g.dot >= oamScanDots {
			g.beginTransfer()
		}
	default:
		if g.dot >= dotsPerLine {
			g.dot = 0
			g.advanceLine()
		}
	}
}

// advanceLine moves to the next scanline, wrapping the frame.
func (g *GPU) advanceLine() {
	if g.windowActive {
		g.windowLine++
		g.windowActive = false
	}

	if int(g.ly)+1 >= totalLines {
		g.setLY(0)
		g.windowLine = 0
		g.wyReached = false
		g.beginLine()
		return
	}

	g.setLY(g.ly + 1)

	if g.ly == visibleLines {
		g.setMode(vblankMode)
		g.frameReady = true
		g.memory.RequestInterrupt(addr.VBlankInterrupt)
		return
	}

	if g.ly < visibleLines {
		g.beginLine()
	}
}

// beginLine enters OAM scan for a visible line.
func (g *GPU) beginLine() {
	if g.ly == g.wy {
		g.wyReached = true
	}
	g.setMode(oamScanMode)
	g.scanOAM()
}

// beginTransfer sets up the pixel pipeline for mode 3.
func (g *GPU) beginTransfer() {
	g.lcdX = 0
	g.discard = int(g.scx) % 8
	g.stall = 0
	g.bgFifo.Clear()
	g.objFifo.Clear()
	g.fetcher.Reset(false)
	g.windowActive = false
	g.setMode(pixelTransferMode)
}

// stepTransfer runs one dot of mode 3: window takeover check, sprite
// fetches, background fetch, pixel output.
func (g *GPU) stepTransfer() {
	g.checkWindowTrigger()

	g.stall += g.fetchSprites()
	if g.stall > 0 {
		g.stall--
		return
	}

	g.fetcher.Tick(g)

	if g.bgFifo.Len() == 0 {
		return
	}

	bgColor := g.bgFifo.Pop()

	// the first SCX%8 background pixels of the line fall off the left edge;
	// only background pixels are discarded, the sprite FIFO is untouched
	if g.discard > 0 {
		g.discard--
		return
	}

	objPx := g.objFifo.Pop()

	g.framebuffer.SetPixel(g.lcdX, int(g.ly), g.mixPixel(bgColor, objPx))

	g.lcdX++
	if g.lcdX >= FramebufferWidth {
		g.setMode(hblankMode)
	}
}

// checkWindowTrigger switches the fetcher to the window map when the
// current pixel crosses WX-7 on a line where the window is live.
func (g *GPU) checkWindowTrigger() {
	if g.windowActive || !g.wyReached || !bit.IsSet(lcdcWindowEnable, g.lcdc) {
		return
	}
	if g.lcdX < int(g.wx)-7 {
		return
	}

	g.windowActive = true
	g.bgFifo.Clear()
	g.fetcher.Reset(true)
}

// mixPixel applies the merge policy: a sprite pixel wins over the
// background iff the background is color 0 or the sprite has priority.
func (g *GPU) mixPixel(bgColor uint8, objPx objPixel) Shade {
	if !bit.IsSet(lcdcBGEnable, g.lcdc) {
		bgColor = 0
	}

	if objPx.color != 0 && (bgColor == 0 || !objPx.behindBG) {
		palette := g.obp0
		if objPx.palette == 1 {
			palette = g.obp1
		}
		return (palette >> (objPx.color * 2)) & 0x03
	}

	return (g.bgp >> (bgColor * 2)) & 0x03
}

// setLY updates the scanline register and re-evaluates the coincidence line.
func (g *GPU) setLY(line uint8) {
	g.ly = line
	g.updateSTATLine()
}

// setMode sets the PPU mode (STAT bits 1-0) and re-evaluates the STAT line.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	g.updateSTATLine()
}

// updateSTATLine recomputes the combined interrupt wire and fires the STAT
// interrupt on its rising edge only.
func (g *GPU) updateSTATLine() {
	line := false
	if g.enabled() {
		switch g.mode {
		case hblankMode:
			line = bit.IsSet(statHblankIrq, g.statFlags)
		case vblankMode:
			line = bit.IsSet(statVblankIrq, g.statFlags)
		case oamScanMode:
			line = bit.IsSet(statOamIrq, g.statFlags)
		}
		if g.ly == g.lyc && bit.IsSet(statLycIrq, g.statFlags) {
			line = true
		}
	}

	if line && !g.statLine {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	g.statLine = line
}

// ReadRegister services an MMU read of a PPU register.
func (g *GPU) ReadRegister(address uint16) byte {
	switch address {
	case addr.LCDC:
		return g.lcdc
	case addr.STAT:
		value := uint8(0x80) | g.statFlags
		if g.ly == g.lyc {
			value |= 0x04
		}
		if g.enabled() {
			value |= uint8(g.mode)
		}
		return value
	case addr.SCY:
		return g.scy
	case addr.SCX:
		return g.scx
	case addr.LY:
		return g.ly
	case addr.LYC:
		return g.lyc
	case addr.BGP:
		return g.bgp
	case addr.OBP0:
		return g.obp0
	case addr.OBP1:
		return g.obp1
	case addr.WY:
		return g.wy
	case addr.WX:
		return g.wx
	default:
		return 0xFF
	}
}

// WriteRegister services an MMU write of a PPU register.
func (g *GPU) WriteRegister(address uint16, value byte) {
	switch address {
	case addr.LCDC:
		wasEnabled := g.enabled()
		g.lcdc = value
		if wasEnabled && !g.enabled() {
			// LCD off: held in HBlank at line 0, memory freely accessible
			g.ly = 0
			g.dot = 0
			g.mode = hblankMode
			g.statLine = false
		} else if !wasEnabled && g.enabled() {
			// re-enabling starts a fresh frame
			g.dot = 0
			g.windowLine = 0
			g.wyReached = false
			g.setLY(0)
			g.beginLine()
		}
	case addr.STAT:
		g.statFlags = value & 0x78
		g.updateSTATLine()
	case addr.SCY:
		g.scy = value
	case addr.SCX:
		g.scx = value
	case addr.LY:
		// read-only, writes are dropped
	case addr.LYC:
		g.lyc = value
		g.updateSTATLine()
	case addr.BGP:
		g.bgp = value
	case addr.OBP0:
		g.obp0 = value
	case addr.OBP1:
		g.obp1 = value
	case addr.WY:
		g.wy = value
	case addr.WX:
		g.wx = value
	}
}

package memory

import (
	"fmt"
	"log/slog"

	"github.com/ivanmara/dotmatrix/dmg/addr"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// VideoUnit is the MMU's view of the PPU: register file access plus the
// VRAM/OAM lockout state that gates CPU accesses.
type VideoUnit interface {
	ReadRegister(address uint16) byte
	WriteRegister(address uint16, value byte)
	VRAMAccessible() bool
	OAMAccessible() bool
}

// MMU routes every 16-bit address to the component that owns it: cartridge
// mapper, VRAM/WRAM/OAM/HRAM, or the I/O register file. It owns the timer,
// joypad, serial port and OAM DMA engine, and holds the IE/IF registers.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	regionMap [256]memRegion

	timer  Timer
	joypad *Joypad
	serial SerialPort
	dma    DMA
	video  VideoUnit

	// traceLY forces LY reads to 0x90, used only by the instruction tracer
	// to push test ROMs past their LY wait loops. It never touches PPU state.
	traceLY bool
}

// New creates a new memory unit with no cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory: make([]byte, 0x10000),
		cart:   NewCartridge(),
		joypad: NewJoypad(),
	}
	mmu.serial = &nullSerial{}
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.joypad.JoypadInterruptHandler = func() { mmu.RequestInterrupt(addr.JoypadInterrupt) }
	initRegionMap(mmu)
	return mmu
}

// NewWithCartridge creates a new memory unit with the provided cartridge
// loaded and its mapper selected from the header.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart
	mmu.mbc = cart.Mapper()
	return mmu
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// AttachVideo connects the PPU's register file and lockout state.
func (m *MMU) AttachVideo(video VideoUnit) {
	m.video = video
}

// AttachSerial connects a serial device to SB/SC.
func (m *MMU) AttachSerial(port SerialPort) {
	m.serial = port
}

// Serial returns the currently attached serial device.
func (m *MMU) Serial() SerialPort {
	return m.serial
}

// Joypad returns the joypad latch.
func (m *MMU) Joypad() *Joypad {
	return m.joypad
}

// SetTimerSeed initializes the internal timer divider (DIV reads its high byte).
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// SetTraceLY toggles the forced-LY read path used by the instruction tracer.
func (m *MMU) SetTraceLY(enabled bool) {
	m.traceLY = enabled
}

// Tick advances the components the MMU owns: timer, serial, OAM DMA.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	m.dma.Tick(cycles, m)
}

// DMAActive reports whether an OAM DMA transfer is in flight.
func (m *MMU) DMAActive() bool {
	return m.dma.Active()
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= byte(interrupt) | 0xE0
}

// PendingInterrupts returns the masked set of requested-and-enabled interrupts.
func (m *MMU) PendingInterrupts() uint8 {
	return m.memory[addr.IE] & m.memory[addr.IF] & 0x1F
}

// ClearInterrupt resets the IF bit for the given interrupt, done by the CPU
// when it dispatches to the service vector.
func (m *MMU) ClearInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] = (m.memory[addr.IF] &^ byte(interrupt)) | 0xE0
}

// VRAMByte reads VRAM directly, bypassing the CPU-side mode 3 lockout.
// Only the PPU should use this.
func (m *MMU) VRAMByte(address uint16) byte {
	return m.memory[address]
}

// OAMByte reads OAM directly, bypassing the CPU-side lockout.
// Only the PPU should use this.
func (m *MMU) OAMByte(address uint16) byte {
	return m.memory[address]
}

func (m *MMU) vramAccessible() bool {
	return m.video == nil || m.video.VRAMAccessible()
}

func (m *MMU) oamAccessible() bool {
	return m.video == nil || m.video.OAMAccessible()
}

// Read services a CPU read. Lockouts apply: during OAM DMA everything below
// 0xFF00 reads 0xFF, VRAM reads 0xFF during mode 3, OAM during modes 2-3.
func (m *MMU) Read(address uint16) byte {
	if m.dma.Active() && address < 0xFF00 {
		return 0xFF
	}
	return m.rawRead(address)
}

// rawRead dispatches a read without the DMA bus lockout. The DMA engine uses
// this path for its source reads.
func (m *MMU) rawRead(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM:
		if !m.vramAccessible() {
			return 0xFF
		}
		return m.memory[address]
	case regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address&0xDFFF]
	case regionOAM:
		if address > addr.OAMEnd {
			// unusable area 0xFEA0-0xFEFF
			return 0xFF
		}
		if !m.oamAccessible() || m.dma.Active() {
			return 0xFF
		}
		return m.memory[address]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		// The upper 3 bits of IF are open bus and always read as 1.
		return m.memory[address] | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		// APU not emulated: whole range is open bus.
		return 0xFF
	case address == addr.DMA:
		return m.dma.Read()
	case address == addr.LY && m.traceLY:
		return 0x90
	case address >= addr.LCDC && address <= addr.WX && m.video != nil:
		return m.video.ReadRegister(address)
	default:
		// HRAM, IE and any leftover I/O slots are plain storage.
		return m.memory[address]
	}
}

// Write services a CPU write. Writes into locked-out regions are dropped.
func (m *MMU) Write(address uint16, value byte) {
	if m.dma.Active() && address < 0xFF00 {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("Writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM:
		if !m.vramAccessible() {
			return
		}
		m.memory[address] = value
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		m.mbc.Write(address, value)
	case regionWRAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address&0xDFFF] = value
	case regionOAM:
		if address > addr.OAMEnd {
			// unusable area, writes dropped
			return
		}
		if !m.oamAccessible() {
			return
		}
		m.memory[address] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.memory[address] = value | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		// APU not emulated, writes dropped
	case address == addr.DMA:
		m.dma.Start(value)
	case address >= addr.LCDC && address <= addr.WX && m.video != nil:
		m.video.WriteRegister(address, value)
	default:
		m.memory[address] = value
	}
}

// nullSerial is the disconnected link port: writes vanish, SB reads 0xFF.
type nullSerial struct {
	sc byte
}

func (n *nullSerial) Write(address uint16, value byte) {
	if address == addr.SC {
		n.sc = value
	}
}

func (n *nullSerial) Read(address uint16) byte {
	if address == addr.SC {
		return n.sc
	}
	return 0xFF
}

func (n *nullSerial) Tick(cycles int) {}
func (n *nullSerial) Reset()          {}

// Package dmg wires the emulator core together: CPU, memory bus, PPU,
// timer, serial and joypad advance in lockstep against a single T-cycle
// clock, one CPU instruction at a time.
package dmg

import (
	"io"
	"log/slog"

	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/cpu"
	"github.com/ivanmara/dotmatrix/dmg/debug"
	"github.com/ivanmara/dotmatrix/dmg/memory"
	"github.com/ivanmara/dotmatrix/dmg/serial"
	"github.com/ivanmara/dotmatrix/dmg/timing"
	"github.com/ivanmara/dotmatrix/dmg/video"
)

// divSeed reproduces the divider phase left behind by the boot ROM
// (DIV reads 0xAB right after handoff).
const divSeed = 0xABCC

// DMG is the emulator core and entry point for running the emulation.
type DMG struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mmu *memory.MMU

	sink   *serial.LogSink
	tracer *debug.DoctorWriter

	instructionCount uint64
	frameCount       uint64
}

func (d *DMG) init(mmu *memory.MMU) {
	d.mmu = mmu
	d.cpu = cpu.New(mmu)
	d.gpu = video.NewGpu(mmu)
	mmu.AttachVideo(d.gpu)

	d.sink = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.AttachSerial(d.sink)

	// post-boot state: divider phase and the IF bits the boot ROM leaves set
	mmu.SetTimerSeed(divSeed)
	mmu.Write(addr.IF, 0xE1)
	mmu.Write(addr.TAC, 0xF8)
}

// New creates an emulator with no cartridge inserted.
func New() *DMG {
	d := &DMG{}
	d.init(memory.New())
	return d
}

// NewWithCartridge creates an emulator with the given cartridge loaded.
func NewWithCartridge(cart *memory.Cartridge) *DMG {
	d := &DMG{}
	d.init(memory.NewWithCartridge(cart))
	return d
}

// NewWithFile creates an emulator and loads the ROM at the given path.
func NewWithFile(path string) (*DMG, error) {
	cart, err := memory.NewCartridgeFromFile(path)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded cartridge", "title", cart.Title())

	d := &DMG{}
	d.init(memory.NewWithCartridge(cart))
	return d, nil
}

// RunUntilFrame executes instructions until the PPU signals a finished
// frame. Every cycle the CPU reports is advanced through the timer, serial,
// OAM DMA and PPU over the same window, CPU effects first. With the LCD
// disabled the call returns after one frame's worth of cycles instead.
func (d *DMG) RunUntilFrame() {
	total := 0
	for {
		cycles := d.cpu.Tick()
		d.mmu.Tick(cycles)
		d.gpu.Tick(cycles)
		d.instructionCount++
		total += cycles

		if d.gpu.ConsumeFrameReady() {
			d.frameCount++
			return
		}
		if total >= timing.CyclesPerFrame {
			d.frameCount++
			return
		}
	}
}

// Step executes a single CPU step (instruction, interrupt dispatch or HALT
// slice) and advances the other components. Returns the T-cycles consumed.
func (d *DMG) Step() int {
	cycles := d.cpu.Tick()
	d.mmu.Tick(cycles)
	d.gpu.Tick(cycles)
	d.instructionCount++
	return cycles
}

// GetCurrentFrame returns the framebuffer holding the last rendered frame.
func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// SetButtons pushes the host's button snapshot into the joypad latch.
// Bit order: Right, Left, Up, Down, A, B, Select, Start; 1 = pressed.
func (d *DMG) SetButtons(state uint8) {
	d.mmu.Joypad().SetButtons(state)
}

// SerialOutput returns everything the program wrote to the link port.
func (d *DMG) SerialOutput() string {
	return d.sink.Output()
}

// EnableTrace turns on the per-instruction Gameboy-Doctor trace. LY reads
// are forced to 0x90 so test ROMs run past their LY wait loops
// deterministically.
func (d *DMG) EnableTrace(w io.Writer) {
	d.tracer = debug.NewDoctorWriter(w)
	d.mmu.SetTraceLY(true)
	d.cpu.SetTraceHook(func() {
		s := d.cpu.Snapshot()
		var pcmem [4]byte
		for i := range pcmem {
			pcmem[i] = d.mmu.Read(s.PC + uint16(i))
		}
		d.tracer.Log(debug.RegisterState{
			A: s.A, F: s.F, B: s.B, C: s.C,
			D: s.D, E: s.E, H: s.H, L: s.L,
			SP: s.SP, PC: s.PC,
		}, pcmem)
	})
}

// FlushTrace drains any buffered trace output.
func (d *DMG) FlushTrace() error {
	if d.tracer == nil {
		return nil
	}
	return d.tracer.Flush()
}

// GetCPU exposes the CPU, used by frontends and tests.
func (d *DMG) GetCPU() *cpu.CPU {
	return d.cpu
}

// GetMMU exposes the memory bus, used by frontends and tests.
func (d *DMG) GetMMU() *memory.MMU {
	return d.mmu
}

func (d *DMG) GetInstructionCount() uint64 {
	return d.instructionCount
}

func (d *DMG) GetFrameCount() uint64 {
	return d.frameCount
}

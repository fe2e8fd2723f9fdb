package cpu

import (
	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/bit"
	"github.com/ivanmara/dotmatrix/dmg/memory"
)

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptDispatchCycles: 2 idle M-cycles, 2 for the PC push, 1 for the jump.
const interruptDispatchCycles = 20

// CPU holds the LR35902 state: eight 8-bit registers (pairable as AF, BC,
// DE, HL), the stack pointer and program counter, and the interrupt/halt
// latches that drive the instruction loop.
type CPU struct {
	memory *memory.MMU

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	// interrupt master enable and the EI one-instruction delay latch
	ime          bool
	imeScheduled bool

	halted  bool
	haltBug bool
	stopped bool
	// frozen is the lockup state entered on an undefined opcode. The CPU
	// stays inert forever but keeps returning cycles so peripherals advance.
	frozen bool

	currentOpcode uint8

	// traceHook, when set, fires once per executed instruction before the
	// opcode fetch. Used by the instruction tracer.
	traceHook func()
}

// New returns a CPU with the DMG post-boot register state.
func New(memory *memory.MMU) *CPU {
	return &CPU{
		memory: memory,
		a:      0x01,
		f:      0xB0,
		b:      0x00,
		c:      0x13,
		d:      0x00,
		e:      0xD8,
		h:      0x01,
		l:      0x4D,
		sp:     0xFFFE,
		pc:     0x0100,
	}
}

// SetTraceHook installs a callback fired before each instruction fetch.
func (c *CPU) SetTraceHook(hook func()) {
	c.traceHook = hook
}

// GetPC returns the current program counter.
func (c *CPU) GetPC() uint16 {
	return c.pc
}

// IsHalted reports whether the CPU is in the HALT low-power state.
func (c *CPU) IsHalted() bool {
	return c.halted
}

// IsFrozen reports whether the CPU hit an undefined opcode and locked up.
func (c *CPU) IsFrozen() bool {
	return c.frozen
}

// Snapshot is the register state at an instruction boundary.
type Snapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Snapshot captures the current register state, for tracing.
func (c *CPU) Snapshot() Snapshot {
	return Snapshot{
		A: c.a, F: c.f, B: c.b, C: c.c,
		D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
	}
}

// Tick executes one unit of CPU work and returns the T-cycles it consumed:
// one instruction, one interrupt dispatch, or one 4-cycle HALT idle slice.
// The result is always a multiple of 4.
func (c *CPU) Tick() int {
	if c.frozen {
		// locked up for good: no work, but the clock keeps running
		return 4
	}

	pending := c.memory.PendingInterrupts()

	if c.halted {
		if pending == 0 {
			return 4
		}
		// any requested+enabled interrupt wakes the CPU, dispatching only
		// happens below when IME is set
		c.halted = false
		c.stopped = false
	}

	if c.ime && pending != 0 {
		return c.serviceInterrupt(pending)
	}

	// EI enables IME only after the *following* instruction has executed
	promoteIME := c.imeScheduled

	if c.traceHook != nil {
		c.traceHook()
	}

	opcode := c.fetchOpcode()
	c.currentOpcode = opcode
	cycles := opcodeTable[opcode](c)

	if promoteIME && c.imeScheduled {
		c.ime = true
		c.imeScheduled = false
	}

	return cycles
}

// fetchOpcode reads the next opcode byte. When the HALT bug is armed the
// byte is fetched without advancing PC, so it gets executed twice.
func (c *CPU) fetchOpcode() uint8 {
	opcode := c.memory.Read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	return opcode
}

// serviceInterrupt dispatches the highest-priority pending interrupt:
// IME is cleared, PC is pushed, control transfers to the service vector and
// the IF bit is acknowledged. Takes 20 T-cycles.
func (c *CPU) serviceInterrupt(pending uint8) int {
	c.ime = false
	c.imeScheduled = false

	// lowest set bit wins
	irq := addr.Interrupt(pending & (-pending))
	c.memory.ClearInterrupt(irq)

	c.pushStack(c.pc)
	c.pc = irq.Vector()

	return interruptDispatchCycles
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

// setAF keeps the low nibble of F zeroed; those bits do not exist in hardware.
func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// readImmediate reads the byte at PC and advances it.
func (c *CPU) readImmediate() uint8 {
	value := c.memory.Read(c.pc)
	c.pc++
	return value
}

// readImmediateWord reads a 16-bit little-endian immediate and advances PC.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

package cpu

import "github.com/ivanmara/dotmatrix/dmg/bit"

// pushStack pushes a 16-bit value: high byte first, so the low byte ends up
// at the lower address.
func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.memory.Write(c.sp, bit.High(value))
	c.sp--
	c.memory.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.memory.Read(c.sp)
	c.sp++
	high := c.memory.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	*r++
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0xF)
	c.setFlag(subFlag)
}

// rlc rotates left through bit 7 into carry. Z is cleared: this variant
// backs RLCA, the CB-prefixed rotates set Z from the result instead.
func (c *CPU) rlc(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	*r = (value << 1) | (value >> 7)
}

func (c *CPU) rl(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag)

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	*r = (value << 1) | carry
}

func (c *CPU) rrc(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	*r = (value >> 1) | ((value & 1) << 7)
}

func (c *CPU) rr(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag) << 7

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	*r = (value >> 1) | carry
}

// addToA adds a value to A, setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF) > 0xF)

	c.a = result
}

// adc adds value and the carry bit to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)

	c.a = result
}

// addToHL adds a 16 bit register to HL. Z is left untouched; H is the carry
// out of bit 11.
func (c *CPU) addToHL(reg uint16) {
	hl := c.getHL()
	result := hl + reg

	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(reg) > 0xFFFF)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(reg&0xFFF) > 0xFFF)

	c.setHL(result)
}

// sub subtracts the value from A and sets all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	c.a = a - value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
}

// sbc subtracts value and the carry bit from A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)

	result := int(a) - int(value) - int(carry)
	c.a = uint8(result)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, result < 0)
	c.setFlagToCondition(halfCarryFlag, int(a&0xF)-int(value&0xF)-int(carry) < 0)
}

func (c *CPU) and(value uint8) {
	c.a &= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	c.a |= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// cp sets flags as sub would, without storing the result.
func (c *CPU) cp(value uint8) {
	a := c.a

	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
}

// daa adjusts A to valid BCD after an addition or subtraction, using N to
// tell which. Z and C are updated, H is cleared, N is preserved.
func (c *CPU) daa() {
	a := c.a

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.isSetFlag(halfCarryFlag) || c.a&0x0F > 0x09 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || c.a > 0x99 {
			a += 0x60
			c.setFlag(carryFlag)
		}
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
}

// addSPOffset computes SP plus a signed immediate. Z and N are cleared; H
// and C come from the unsigned addition of the low byte of SP and the
// offset byte (bit 3 and bit 7 carries).
func (c *CPU) addSPOffset() uint16 {
	offset := c.readImmediate()
	result := c.sp + uint16(int8(offset))

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (c.sp&0xF)+uint16(offset&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (c.sp&0xFF)+uint16(offset) > 0xFF)

	return result
}

// jr applies a signed relative jump when the condition holds.
// Taken: 12 cycles, not taken: 8.
func (c *CPU) jr(condition bool) int {
	offset := int8(c.readImmediate())
	if !condition {
		return 8
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	return 12
}

// jp jumps to a 16-bit immediate when the condition holds.
// Taken: 16 cycles, not taken: 12.
func (c *CPU) jp(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pc = target
	return 16
}

// call pushes the return address and jumps when the condition holds.
// Taken: 24 cycles, not taken: 12.
func (c *CPU) call(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pushStack(c.pc)
	c.pc = target
	return 24
}

// retCondition returns when the condition holds. Taken: 20, not taken: 8.
func (c *CPU) retCondition(condition bool) int {
	if !condition {
		return 8
	}
	c.pc = c.popStack()
	return 20
}

// rst pushes PC and jumps to one of the fixed vectors.
func (c *CPU) rst(vector uint16) int {
	c.pushStack(c.pc)
	c.pc = vector
	return 16
}

// halt implements the HALT instruction, including the HALT bug: with IME
// clear and an interrupt already pending, HALT falls through and the
// following byte is fetched twice.
func (c *CPU) halt() {
	if c.ime {
		c.halted = true
		return
	}

	if c.memory.PendingInterrupts() == 0 {
		// wake on (IE & IF) != 0, but do not dispatch
		c.halted = true
		return
	}

	c.haltBug = true
}

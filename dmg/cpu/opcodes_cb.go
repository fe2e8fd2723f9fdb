package cpu

import "github.com/ivanmara/dotmatrix/dmg/bit"

// The CB opcode space is fully regular: bits 2-0 select the operand
// {B, C, D, E, H, L, (HL), A}, bits 5-3 select the rotate/shift variant or
// the bit index, bits 7-6 select rotate/shift vs BIT/RES/SET. Register
// operands take 8 T-cycles; read-modify-write operations on (HL) take 16,
// and BIT on (HL), which only reads, takes 12.
func (c *CPU) executeCB() int {
	opcode := c.readImmediate()
	operand := opcode & 0x07
	selector := (opcode >> 3) & 0x07

	var value uint8
	if operand == operandHL {
		value = c.memory.Read(c.getHL())
	} else {
		value = *c.reg8(operand)
	}

	switch opcode >> 6 {
	case 0:
		value = c.applyRotateShift(selector, value)
	case 1:
		c.bitTest(selector, value)
		// BIT never writes back
		if operand == operandHL {
			return 12
		}
		return 8
	case 2:
		value = bit.Reset(selector, value)
	case 3:
		value = bit.Set(selector, value)
	}

	if operand == operandHL {
		c.memory.Write(c.getHL(), value)
		return 16
	}
	*c.reg8(operand) = value
	return 8
}

const operandHL = 6

// reg8 maps a CB operand index to its register. Index 6 is (HL) and is
// handled by the caller.
func (c *CPU) reg8(index uint8) *uint8 {
	switch index {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	case 7:
		return &c.a
	}
	panic("cpu: invalid CB operand index")
}

func (c *CPU) applyRotateShift(selector, value uint8) uint8 {
	switch selector {
	case 0:
		return c.rlcValue(value)
	case 1:
		return c.rrcValue(value)
	case 2:
		return c.rlValue(value)
	case 3:
		return c.rrValue(value)
	case 4:
		return c.sla(value)
	case 5:
		return c.sra(value)
	case 6:
		return c.swap(value)
	default:
		return c.srl(value)
	}
}

// The CB-prefixed rotates differ from RLCA/RRCA/RLA/RRA in exactly one way:
// Z is set from the result instead of being cleared.

func (c *CPU) rlcValue(value uint8) uint8 {
	result := (value << 1) | (value >> 7)

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rrcValue(value uint8) uint8 {
	result := (value >> 1) | ((value & 1) << 7)

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rlValue(value uint8) uint8 {
	result := (value << 1) | c.flagToBit(carryFlag)

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rrValue(value uint8) uint8 {
	result := (value >> 1) | (c.flagToBit(carryFlag) << 7)

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

// sla shifts left into carry, bit 0 becomes 0.
func (c *CPU) sla(value uint8) uint8 {
	result := value << 1

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

// sra shifts right into carry, bit 7 keeps its value (arithmetic shift).
func (c *CPU) sra(value uint8) uint8 {
	result := (value >> 1) | (value & 0x80)

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

// srl shifts right into carry, bit 7 becomes 0 (logical shift).
func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

// swap exchanges the two nibbles.
func (c *CPU) swap(value uint8) uint8 {
	result := (value << 4) | (value >> 4)

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)

	return result
}

// bitTest sets Z from the complement of the tested bit. C is untouched.
func (c *CPU) bitTest(index, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

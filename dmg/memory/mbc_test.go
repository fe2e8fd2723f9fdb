package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// bankedROM builds a ROM where every byte holds its own bank number.
func bankedROM(banks int) []uint8 {
	rom := make([]uint8, banks*0x4000)
	for i := range rom {
		rom[i] = uint8(i / 0x4000)
	}
	return rom
}

func TestNoMBC(t *testing.T) {
	rom := make([]uint8, 0x8000)
	rom[0x1234] = 0xAB
	mbc := NewNoMBC(rom)

	assert.Equal(t, uint8(0xAB), mbc.Read(0x1234))
	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "no external RAM")

	mbc.Write(0x2000, 0x02)
	assert.Equal(t, rom[0x4000], mbc.Read(0x4000), "banking writes are ignored")
}

func TestMBC1_romBanking(t *testing.T) {
	mbc := NewMBC1(bankedROM(8), 0)

	t.Run("bank 0 fixed by default", func(t *testing.T) {
		assert.Equal(t, uint8(0), mbc.Read(0x0000))
		assert.Equal(t, uint8(0), mbc.Read(0x3FFF))
	})

	t.Run("switchable region defaults to bank 1", func(t *testing.T) {
		assert.Equal(t, uint8(1), mbc.Read(0x4000))
	})

	t.Run("BANK1 selects the switchable bank", func(t *testing.T) {
		mbc.Write(0x2000, 0x03)
		assert.Equal(t, uint8(3), mbc.Read(0x4000))
	})

	t.Run("BANK1 zero is promoted to one", func(t *testing.T) {
		mbc.Write(0x2000, 0x00)
		assert.Equal(t, uint8(1), mbc.Read(0x4000))
	})

	t.Run("bank number wraps modulo ROM size", func(t *testing.T) {
		mbc.Write(0x2000, 0x0A) // bank 10 on an 8-bank cart
		assert.Equal(t, uint8(2), mbc.Read(0x4000))
	})
}

func TestMBC1_bank2AndMode(t *testing.T) {
	// 128 banks = 2MB, big enough for BANK2 to matter
	mbc := NewMBC1(bankedROM(128), 0)

	mbc.Write(0x2000, 0x01) // BANK1 = 1
	mbc.Write(0x4000, 0x01) // BANK2 = 1

	t.Run("BANK2 supplies bits 5-6 of the switchable bank", func(t *testing.T) {
		assert.Equal(t, uint8(0x21), mbc.Read(0x4000))
	})

	t.Run("mode 0 keeps the fixed region at bank 0", func(t *testing.T) {
		assert.Equal(t, uint8(0), mbc.Read(0x0000))
	})

	t.Run("mode 1 remaps the fixed region to BANK2<<5", func(t *testing.T) {
		mbc.Write(0x6000, 0x01)
		assert.Equal(t, uint8(0x20), mbc.Read(0x0000))
		// BANK1 never contributes to the fixed region
		assert.Equal(t, uint8(0x21), mbc.Read(0x4000))
	})
}

func TestMBC1_ram(t *testing.T) {
	mbc := NewMBC1(bankedROM(2), 4)

	t.Run("disabled by default", func(t *testing.T) {
		assert.Equal(t, uint8(0xFF), mbc.Read(0xA000))
		mbc.Write(0xA000, 0x42)
		mbc.Write(0x0000, 0x0A)
		assert.Equal(t, uint8(0x00), mbc.Read(0xA000), "write while disabled was dropped")
	})

	t.Run("enable requires low nibble 0xA", func(t *testing.T) {
		mbc.Write(0x0000, 0x0B)
		assert.False(t, mbc.ramg)
		mbc.Write(0x0000, 0xFA)
		assert.True(t, mbc.ramg, "any value with low nibble 0xA enables")
	})

	t.Run("round trips when enabled", func(t *testing.T) {
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0xA123, 0x42)
		assert.Equal(t, uint8(0x42), mbc.Read(0xA123))
	})

	t.Run("mode 1 banks the RAM with BANK2", func(t *testing.T) {
		mbc.Write(0x6000, 0x01)
		mbc.Write(0x4000, 0x02)
		mbc.Write(0xA000, 0x99)

		mbc.Write(0x4000, 0x00)
		assert.NotEqual(t, uint8(0x99), mbc.Read(0xA000))

		mbc.Write(0x4000, 0x02)
		assert.Equal(t, uint8(0x99), mbc.Read(0xA000))
	})

	t.Run("mode 0 always uses RAM bank 0", func(t *testing.T) {
		mbc.Write(0x6000, 0x00)
		mbc.Write(0x4000, 0x02)
		mbc.Write(0xA000, 0x77)
		mbc.Write(0x4000, 0x00)
		assert.Equal(t, uint8(0x77), mbc.Read(0xA000), "BANK2 is ignored for RAM in mode 0")
	})
}

func TestCartridge_mapperSelection(t *testing.T) {
	rom := make([]byte, 0x8000)

	testCases := []struct {
		desc     string
		cartType byte
		wantMBC1 bool
	}{
		{desc: "ROM only", cartType: 0x00, wantMBC1: false},
		{desc: "MBC1", cartType: 0x01, wantMBC1: true},
		{desc: "MBC1+RAM+battery", cartType: 0x03, wantMBC1: true},
		{desc: "unknown type falls back to ROM only", cartType: 0x42, wantMBC1: false},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			rom[cartridgeTypeAddress] = tC.cartType
			cart, err := NewCartridgeWithData(rom)
			assert.NoError(t, err)

			_, isMBC1 := cart.Mapper().(*MBC1)
			assert.Equal(t, tC.wantMBC1, isMBC1)
		})
	}
}

func TestCartridge_tooSmall(t *testing.T) {
	_, err := NewCartridgeWithData(make([]byte, 0x200))
	assert.Error(t, err)
}

func TestCartridge_title(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:], "TETRIS")
	cart, err := NewCartridgeWithData(rom)

	assert.NoError(t, err)
	assert.Equal(t, "TETRIS", cart.Title())
}

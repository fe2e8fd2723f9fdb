package memory

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

const titleLength = 16

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
)

// minimum image: two 16KB ROM banks, enough to cover the header
const minROMSize = 0x8000

// Cartridge holds a loaded ROM image and its decoded header fields.
type Cartridge struct {
	data           []byte
	title          string
	cartType       uint8
	romSize        uint8
	ramSize        uint8
	version        uint8
	headerChecksum uint8
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data: make([]byte, minROMSize),
	}
}

// NewCartridgeWithData initializes a new Cartridge from a flat ROM image.
// The header checksum is decoded but not enforced.
func NewCartridgeWithData(bytes []byte) (*Cartridge, error) {
	if len(bytes) < minROMSize {
		return nil, fmt.Errorf("ROM image too small: %d bytes, need at least %d", len(bytes), minROMSize)
	}

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanTitle(bytes[titleAddress : titleAddress+titleLength]),
		cartType:       bytes[cartridgeTypeAddress],
		romSize:        bytes[romSizeAddress],
		ramSize:        bytes[ramSizeAddress],
		version:        bytes[versionNumberAddress],
		headerChecksum: bytes[headerChecksumAddress],
	}
	copy(cart.data, bytes)

	return cart, nil
}

// NewCartridgeFromFile loads a ROM image from disk.
func NewCartridgeFromFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM file: %w", err)
	}
	slog.Debug("Loaded ROM data", "path", path, "size", len(data))
	return NewCartridgeWithData(data)
}

// Title returns the game title from the header.
func (c *Cartridge) Title() string {
	return c.title
}

// ramBankCount maps the header RAM size code to a number of 8KB banks.
func (c *Cartridge) ramBankCount() int {
	switch c.ramSize {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// Mapper selects an MBC implementation from the cartridge type byte.
// Unsupported types fall back to ROM-only.
func (c *Cartridge) Mapper() MBC {
	switch c.cartType {
	case 0x00:
		return NewNoMBC(c.data)
	case 0x01:
		return NewMBC1(c.data, 0)
	case 0x02, 0x03:
		return NewMBC1(c.data, c.ramBankCount())
	default:
		slog.Warn("Unsupported cartridge type, falling back to ROM-only",
			"type", fmt.Sprintf("0x%02X", c.cartType))
		return NewNoMBC(c.data)
	}
}

// cleanTitle processes a raw header title: NULL bytes become spaces,
// non-printable characters are replaced, whitespace is trimmed.
func cleanTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))

	for _, b := range titleBytes {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	return strings.TrimSpace(string(runes))
}

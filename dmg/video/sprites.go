package video

import (
	"sort"

	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/bit"
)

// sprite is one OAM entry selected for the current scanline.
type sprite struct {
	oamIndex int
	y, x     int // screen position (OAM Y minus 16, OAM X minus 8)
	tile     uint8
	flags    uint8
	fetched  bool
}

// sprite attribute flags (OAM byte 3)
const (
	spriteFlagPalette  = 4
	spriteFlagFlipX    = 5
	spriteFlagFlipY    = 6
	spriteFlagBehindBG = 7
)

// objPixel is one merged sprite pixel waiting to be mixed with the
// background at pop time.
type objPixel struct {
	color    uint8 // 2-bit color index, 0 = transparent
	palette  uint8 // 0 = OBP0, 1 = OBP1
	behindBG bool
}

// objFIFO holds the next 8 sprite pixels, aligned with the LCD X position.
type objFIFO struct {
	buf [8]objPixel
}

func (q *objFIFO) Clear() {
	q.buf = [8]objPixel{}
}

// Pop shifts out the pixel for the current X and appends a transparent slot.
func (q *objFIFO) Pop() objPixel {
	head := q.buf[0]
	copy(q.buf[:], q.buf[1:])
	q.buf[7] = objPixel{}
	return head
}

// Merge overlays a sprite pixel at the given offset. An existing opaque
// pixel keeps priority: sprites are fetched in priority order, so first
// writer wins.
func (q *objFIFO) Merge(offset int, px objPixel) {
	if offset < 0 || offset >= len(q.buf) {
		return
	}
	if q.buf[offset].color != 0 {
		return
	}
	q.buf[offset] = px
}

// scanOAM selects up to 10 sprites whose Y range covers the current line.
// Only Y participates in selection: off-screen X still burns a slot.
// The result is ordered by priority (lower X first, then lower OAM index).
func (g *GPU) scanOAM() {
	g.sprites = g.sprites[:0]
	height := 8
	if bit.IsSet(lcdcSpriteSize, g.lcdc) {
		height = 16
	}

	for index := 0; index < 40 && len(g.sprites) < 10; index++ {
		base := addr.OAMStart + uint16(index*4)
		spriteY := int(g.memory.OAMByte(base)) - 16

		if spriteY > int(g.ly) || spriteY+height <= int(g.ly) {
			continue
		}

		g.sprites = append(g.sprites, sprite{
			oamIndex: index,
			y:        spriteY,
			x:        int(g.memory.OAMByte(base+1)) - 8,
			tile:     g.memory.OAMByte(base + 2),
			flags:    g.memory.OAMByte(base + 3),
		})
	}

	sort.SliceStable(g.sprites, func(i, j int) bool {
		return g.sprites[i].x < g.sprites[j].x
	})
}

// fetchSprites pulls tile data for every selected sprite whose window has
// been reached and merges it into the sprite FIFO. Returns the number of
// dots the pixel pipeline stalls.
func (g *GPU) fetchSprites() int {
	if !bit.IsSet(lcdcSpriteEnable, g.lcdc) {
		return 0
	}

	stall := 0
	for i := range g.sprites {
		s := &g.sprites[i]
		if s.fetched || s.x > g.lcdX {
			continue
		}
		s.fetched = true
		g.mergeSprite(s)
		stall += 6
	}
	return stall
}

// mergeSprite reads the sprite's two bitplane bytes and overlays its pixels.
func (g *GPU) mergeSprite(s *sprite) {
	height := 8
	tile := s.tile
	if bit.IsSet(lcdcSpriteSize, g.lcdc) {
		height = 16
		tile &= 0xFE
	}

	row := int(g.ly) - s.y
	if bit.IsSet(spriteFlagFlipY, s.flags) {
		row = height - 1 - row
	}
	if row >= 8 {
		tile |= 0x01
		row -= 8
	}

	// sprites always use unsigned addressing from 0x8000
	base := addr.TileData0 + uint16(tile)*16 + uint16(row*2)
	low := g.memory.VRAMByte(base)
	high := g.memory.VRAMByte(base + 1)

	palette := bit.GetBitValue(spriteFlagPalette, s.flags)
	behindBG := bit.IsSet(spriteFlagBehindBG, s.flags)

	for px := 0; px < 8; px++ {
		index := uint8(7 - px)
		if bit.IsSet(spriteFlagFlipX, s.flags) {
			index = uint8(px)
		}
		color := bit.GetBitValue(index, high)<<1 | bit.GetBitValue(index, low)
		g.objFifo.Merge(s.x+px-g.lcdX, objPixel{
			color:    color,
			palette:  palette,
			behindBG: behindBG,
		})
	}
}

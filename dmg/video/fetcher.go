package video

import (
	"github.com/ivanmara/dotmatrix/dmg/addr"
	"github.com/ivanmara/dotmatrix/dmg/bit"
)

// pixelFIFO is a ring buffer of 2-bit background color indices. It holds up
// to two tiles worth of pixels; the fetcher refuses to push while more than
// eight are queued.
type pixelFIFO struct {
	buf  [16]uint8
	head int
	size int
}

func (q *pixelFIFO) Clear() {
	q.head, q.size = 0, 0
}

func (q *pixelFIFO) Len() int {
	return q.size
}

func (q *pixelFIFO) Push(colorIndex uint8) {
	q.buf[(q.head+q.size)%len(q.buf)] = colorIndex & 0x03
	q.size++
}

func (q *pixelFIFO) Pop() uint8 {
	value := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return value
}

// fetcher steps in 2-dot phases: tile index, tile data low, tile data high,
// then a push that repeats every dot until the FIFO has room (8 entries or
// fewer). Tile rows come from the background map until the window takes
// over for the rest of the scanline.
type fetchStep int

const (
	fetchTileIndex fetchStep = iota
	fetchTileLow
	fetchTileHigh
	fetchPush
)

type fetcher struct {
	step      fetchStep
	dotInStep int
	tileX     int // x position in tiles within the current map row
	tileIndex uint8
	low, high uint8
	window    bool
}

func (f *fetcher) Reset(window bool) {
	f.step = fetchTileIndex
	f.dotInStep = 0
	f.tileX = 0
	f.window = window
}

// Tick advances the fetcher by one dot. The GPU provides map/data
// addressing through its registers.
func (f *fetcher) Tick(g *GPU) {
	if f.step != fetchPush {
		f.dotInStep++
		if f.dotInStep < 2 {
			return
		}
		f.dotInStep = 0
	}

	switch f.step {
	case fetchTileIndex:
		f.tileIndex = g.readTileIndex(f)
		f.step = fetchTileLow
	case fetchTileLow:
		f.low = g.readTileData(f, 0)
		f.step = fetchTileHigh
	case fetchTileHigh:
		f.high = g.readTileData(f, 1)
		f.step = fetchPush
	case fetchPush:
		// push eight pixels as soon as the FIFO is at half capacity or less
		if g.bgFifo.Len() > 8 {
			return
		}
		for px := 0; px < 8; px++ {
			index := uint8(7 - px)
			colorIndex := bit.GetBitValue(index, f.high)<<1 | bit.GetBitValue(index, f.low)
			g.bgFifo.Push(colorIndex)
		}
		f.tileX++
		f.step = fetchTileIndex
	}
}

// readTileIndex resolves the tile map entry for the fetcher's current tile.
func (g *GPU) readTileIndex(f *fetcher) uint8 {
	var mapBase uint16
	var row, col int

	if f.window {
		mapBase = addr.TileMap0
		if bit.IsSet(lcdcWindowTileMapSelect, g.lcdc) {
			mapBase = addr.TileMap1
		}
		row = g.windowLine / 8
		col = f.tileX & 0x1F
	} else {
		mapBase = addr.TileMap0
		if bit.IsSet(lcdcBGTileMapSelect, g.lcdc) {
			mapBase = addr.TileMap1
		}
		row = ((int(g.ly) + int(g.scy)) & 0xFF) / 8
		col = (f.tileX + int(g.scx)/8) & 0x1F
	}

	return g.memory.VRAMByte(mapBase + uint16(row*32+col))
}

// readTileData reads one of the two bitplane bytes for the fetched tile row.
// Addressing depends on LCDC bit 4: unsigned from 0x8000 or signed from 0x9000.
func (g *GPU) readTileData(f *fetcher, plane uint16) uint8 {
	var fineY int
	if f.window {
		fineY = g.windowLine % 8
	} else {
		fineY = (int(g.ly) + int(g.scy)) % 8
	}

	var base uint16
	if bit.IsSet(lcdcTileDataSelect, g.lcdc) {
		base = addr.TileData0 + uint16(f.tileIndex)*16
	} else {
		base = uint16(int(addr.TileData2) + int(int8(f.tileIndex))*16)
	}

	return g.memory.VRAMByte(base + uint16(fineY*2) + plane)
}

package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivanmara/dotmatrix/dmg/addr"
)

func TestPixelFIFO(t *testing.T) {
	var fifo pixelFIFO

	assert.Equal(t, 0, fifo.Len())

	for i := uint8(0); i < 4; i++ {
		fifo.Push(i % 4)
	}
	assert.Equal(t, 4, fifo.Len())

	assert.Equal(t, uint8(0), fifo.Pop())
	assert.Equal(t, uint8(1), fifo.Pop())
	assert.Equal(t, 2, fifo.Len())

	fifo.Clear()
	assert.Equal(t, 0, fifo.Len())
}

func TestPixelFIFO_masksToTwoBits(t *testing.T) {
	var fifo pixelFIFO
	fifo.Push(0xFF)
	assert.Equal(t, uint8(0x03), fifo.Pop())
}

func TestFetcher_producesTileRowAfterLatency(t *testing.T) {
	gpu, mmu := newTestGPU()
	fillTile(mmu, 1, 3)
	fillTileMap(mmu, addr.TileMap0, 1)

	gpu.fetcher.Reset(false)
	gpu.bgFifo.Clear()

	// 2 dots tile index, 2 low, 2 high, then push on the 7th
	for i := 0; i < 6; i++ {
		gpu.fetcher.Tick(gpu)
		assert.Equal(t, 0, gpu.bgFifo.Len())
	}
	gpu.fetcher.Tick(gpu)
	assert.Equal(t, 8, gpu.bgFifo.Len())
	assert.Equal(t, 1, gpu.fetcher.tileX, "fetcher moved to the next tile")
}

func TestFetcher_pushWaitsForRoom(t *testing.T) {
	gpu, mmu := newTestGPU()
	fillTile(mmu, 1, 3)
	fillTileMap(mmu, addr.TileMap0, 1)

	gpu.fetcher.Reset(false)
	gpu.bgFifo.Clear()

	// two full fetch rounds fill the FIFO to 16
	for i := 0; i < 14; i++ {
		gpu.fetcher.Tick(gpu)
	}
	assert.Equal(t, 16, gpu.bgFifo.Len())

	// with more than 8 queued the push step stalls
	for i := 0; i < 10; i++ {
		gpu.fetcher.Tick(gpu)
	}
	assert.Equal(t, 16, gpu.bgFifo.Len())

	// drain to 8: the pending push goes through on the next dot
	for i := 0; i < 8; i++ {
		gpu.bgFifo.Pop()
	}
	gpu.fetcher.Tick(gpu)
	assert.Equal(t, 16, gpu.bgFifo.Len())
}

func TestObjFIFO_firstWriterKeepsPixel(t *testing.T) {
	var fifo objFIFO

	fifo.Merge(0, objPixel{color: 2})
	fifo.Merge(0, objPixel{color: 3})

	assert.Equal(t, uint8(2), fifo.Pop().color)
}

func TestObjFIFO_popShifts(t *testing.T) {
	var fifo objFIFO

	fifo.Merge(1, objPixel{color: 1})

	assert.Equal(t, uint8(0), fifo.Pop().color)
	assert.Equal(t, uint8(1), fifo.Pop().color)
	assert.Equal(t, uint8(0), fifo.Pop().color)
}

func TestObjFIFO_ignoresOutOfRange(t *testing.T) {
	var fifo objFIFO

	fifo.Merge(-1, objPixel{color: 3})
	fifo.Merge(8, objPixel{color: 3})

	for i := 0; i < 8; i++ {
		assert.Equal(t, uint8(0), fifo.Pop().color)
	}
}

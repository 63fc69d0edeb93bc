// Package console implements the one shipped vm.System: a small
// game-console memory map with RAM, a 4-bit-per-pixel tileset, a tile map,
// a single hardware sprite, and an 8-button controller, all wired to an
// external host.Host for input and presentation.
package console

import (
	"github.com/TimmyTango/tango-vm/host"
	"github.com/TimmyTango/tango-vm/vm"
)

// Memory map, per SPEC_FULL.md §4.7.
const (
	ramStart = 0x0000
	ramEnd   = 0x0FFF // inclusive

	tilesetStart = 0xF000
	tilesetEnd   = 0xF7FF // inclusive, 2 KiB, 4bpp

	tilemapStart = 0xF800
	tilemapEnd   = 0xFA3F // inclusive, 32x18 bytes

	controllerAddr = 0xFCB0
	sprite0Tile    = 0xFCB2
	sprite0X       = 0xFCB3
	sprite0Y       = 0xFCB4

	tilemapWidth  = 32
	tilemapHeight = 18
)

// openBus is the byte returned for any address not covered by a defined
// region, grounded in original_source's vm_system.c system_read_byte.
const openBus byte = 0xAA

// Palette holds up to 16 RGB entries; index 0-6 and 15 are defined by
// default, the rest default to black, per SPEC_FULL.md §4.7.
type Palette [16][3]byte

// DefaultPalette is a small fixed set reminiscent of early console
// palettes: black, white, five saturated colors, and a dim gray at index 15,
// with the remaining entries left black.
var DefaultPalette = Palette{
	0:  {0x00, 0x00, 0x00}, // black
	1:  {0xFF, 0xFF, 0xFF}, // white
	2:  {0xE0, 0x20, 0x20}, // red
	3:  {0x20, 0xC0, 0x20}, // green
	4:  {0x20, 0x40, 0xE0}, // blue
	5:  {0xE0, 0xE0, 0x20}, // yellow
	6:  {0xC0, 0x40, 0xC0}, // magenta
	15: {0x60, 0x60, 0x60}, // reserved: dim gray
}

// Console is the concrete vm.System: RAM plus video/input MMIO. Reads
// outside every defined window return openBus; writes outside RAM, the
// tileset, the tile map, the controller byte, and sprite-0's registers are
// silent no-ops.
type Console struct {
	ram     [ramEnd - ramStart + 1]byte
	tileset [tilesetEnd - tilesetStart + 1]byte
	tilemap [tilemapEnd - tilemapStart + 1]byte

	controller byte
	sprTile    byte
	sprX       byte
	sprY       byte

	palette Palette

	tilesetDirty bool
	host         host.Host
}

// New constructs a Console backed by h for input/presentation, using
// DefaultPalette.
func New(h host.Host) *Console {
	return &Console{host: h, palette: DefaultPalette}
}

var _ vm.System = (*Console)(nil)

// Fetch is the decoder's non-transactional instruction-stream read. It
// reads straight out of RAM and never observes or sets the dirty flag,
// matching spec §4.1.
func (c *Console) Fetch(addr uint16) byte {
	if addr >= ramStart && addr <= ramEnd {
		return c.ram[addr-ramStart]
	}
	return openBus
}

// ReadByte is the transactional read path used for everything except
// instruction fetch.
func (c *Console) ReadByte(addr uint16) byte {
	switch {
	case addr >= ramStart && addr <= ramEnd:
		return c.ram[addr-ramStart]
	case addr >= tilesetStart && addr <= tilesetEnd:
		return c.tileset[addr-tilesetStart]
	case addr >= tilemapStart && addr <= tilemapEnd:
		return c.tilemap[addr-tilemapStart]
	case addr == controllerAddr:
		return c.controller
	case addr == sprite0Tile:
		return c.sprTile
	case addr == sprite0X:
		return c.sprX
	case addr == sprite0Y:
		return c.sprY
	default:
		return openBus
	}
}

// ReadWord reads a little-endian word via two ReadByte calls.
func (c *Console) ReadWord(addr uint16) uint16 {
	lo := c.ReadByte(addr)
	hi := c.ReadByte(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// WriteByte is the transactional write path. Writes into the tileset raise
// the dirty flag RenderFrame reports and clears; writes outside any defined
// window are silently dropped, per spec §7.
func (c *Console) WriteByte(addr uint16, value byte) {
	switch {
	case addr >= ramStart && addr <= ramEnd:
		c.ram[addr-ramStart] = value
	case addr >= tilesetStart && addr <= tilesetEnd:
		c.tileset[addr-tilesetStart] = value
		c.tilesetDirty = true
	case addr >= tilemapStart && addr <= tilemapEnd:
		c.tilemap[addr-tilemapStart] = value
	case addr == controllerAddr:
		c.controller = value
	case addr == sprite0Tile:
		c.sprTile = value
	case addr == sprite0X:
		c.sprX = value
	case addr == sprite0Y:
		c.sprY = value
	}
}

// RenderFrame reports the dirty state accumulated since the previous call
// (clearing it) and returns a pixel snapshot the host can present.
// Dirty-bit timing follows spec §5: a write to tileset memory is only ever
// observed on the frame rendered after it, never retroactively within the
// frame that produced it.
func (c *Console) RenderFrame() vm.Frame {
	dirty := c.tilesetDirty
	c.tilesetDirty = false

	pixels := c.renderPixels()
	c.host.Present(pixels)

	return vm.Frame{TilesetDirty: dirty, Pixels: pixels}
}

// renderPixels composites the tile map (and sprite 0 on top) into an RGB
// buffer using the 4bpp tileset and the active palette.
func (c *Console) renderPixels() []byte {
	const tileSize = 8
	width := tilemapWidth * tileSize
	height := tilemapHeight * tileSize
	pixels := make([]byte, width*height*3)

	for ty := 0; ty < tilemapHeight; ty++ {
		for tx := 0; tx < tilemapWidth; tx++ {
			tileIdx := c.tilemap[ty*tilemapWidth+tx]
			c.blitTile(pixels, width, tx*tileSize, ty*tileSize, tileIdx)
		}
	}
	c.blitTile(pixels, width, int(c.sprX), int(c.sprY), c.sprTile)

	return pixels
}

// blitTile draws one 8x8, 4-bit-per-pixel tile at (px, py) into pixels,
// which is laid out as tightly packed RGB rows of the given width.
func (c *Console) blitTile(pixels []byte, width, px, py int, tileIdx byte) {
	const tileSize = 8
	base := int(tileIdx) * (tileSize * tileSize / 2)
	if base+tileSize*tileSize/2 > len(c.tileset) {
		return
	}
	for row := 0; row < tileSize; row++ {
		for col := 0; col < tileSize; col++ {
			byteOff := base + (row*tileSize+col)/2
			b := c.tileset[byteOff]
			var nibble byte
			if col%2 == 0 {
				nibble = b >> 4
			} else {
				nibble = b & 0x0F
			}
			rgb := c.palette[nibble]

			x, y := px+col, py+row
			if x < 0 || y < 0 || x >= width || y*width+x >= len(pixels)/3 {
				continue
			}
			off := (y*width + x) * 3
			pixels[off], pixels[off+1], pixels[off+2] = rgb[0], rgb[1], rgb[2]
		}
	}
}

// controllerBit maps a host.Key to its bit position in the controller
// register, matching the button ordering conventional for this class of
// machine (d-pad, then A/B/start/select).
func controllerBit(k host.Key) byte {
	return 1 << uint(k)
}

// PollEvents drains the host's current key state into the controller
// register and reports quit/step requests.
func (c *Console) PollEvents() vm.Events {
	var reg byte
	for k, down := range c.host.PollKeys() {
		if down {
			reg |= controllerBit(k)
		}
	}
	c.controller = reg

	return vm.Events{
		Quit: c.host.QuitRequested(),
		Step: c.host.StepRequested(),
	}
}

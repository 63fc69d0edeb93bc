package vm

// Bus is the transactional memory interface the CPU uses for every access
// except instruction fetch. Implementations are free to route different
// address windows to different backing stores (RAM, tile memory, I/O
// registers) and to treat writes into observable regions as dirtying state
// a later RenderFrame call will pick up.
type Bus interface {
	// ReadByte returns the byte at addr. Reads outside any region an
	// implementation defines should return a stable open-bus value rather
	// than panicking.
	ReadByte(addr uint16) byte

	// ReadWord returns the little-endian word at addr, addr+1.
	ReadWord(addr uint16) uint16

	// WriteByte stores value at addr. Writes outside any region an
	// implementation defines are silent no-ops.
	WriteByte(addr uint16, value byte)
}

// System extends Bus with the collaborators the stepping loop needs beyond
// raw memory access: a non-transactional fetch path for the decoder, and
// the per-frame render/input boundary. console.Console is the one shipped
// implementation; tests may supply a lighter fake.
type System interface {
	Bus

	// Fetch reads a byte directly for instruction decode, bypassing the
	// dirty-tracking and region checks ReadByte applies. Only the decoder's
	// fetch path may call this.
	Fetch(addr uint16) byte

	// RenderFrame clears any dirty state accumulated since the previous
	// call and returns a snapshot the host can present. Called once per
	// stepping-loop iteration.
	RenderFrame() Frame

	// PollEvents drains pending host input into system-visible state (e.g.
	// a controller register) and reports loop control requests.
	PollEvents() Events
}

// Frame is an opaque renderable snapshot handed to the host. Its shape is
// owned by the concrete System; the CPU and stepping loop never inspect it.
type Frame struct {
	// TilesetDirty reports whether tileset memory changed since the last
	// RenderFrame call — the observable form of the dirty-flag protocol.
	TilesetDirty bool
	Pixels       []byte
}

// Events reports loop-control requests gathered during PollEvents.
type Events struct {
	Quit bool
	// Step requests a single-cycle advance in debug/step mode rather than
	// free-running execution.
	Step bool
}

// ByteWriter is the narrow surface a Loader needs. Bus satisfies it, and so
// does any plain byte sink, so a loader can build a memory image without
// constructing a CPU or a full System.
type ByteWriter interface {
	WriteByte(addr uint16, value byte)
}

package tile

import "fmt"

const (
	// CoresPerTile is the number of cores sharing a tile's local network.
	CoresPerTile = 8
	// TableSize is the number of endpoints in a core's channel map table.
	TableSize = 16
	// InputChannels is the number of input channel ends per core.
	InputChannels = 8

	// InputBufferDepth is the capacity of an ordinary input channel end.
	InputBufferDepth = 4
	// IPKFIFODepth is the capacity of the instruction packet FIFO.
	IPKFIFODepth = 8

	DefaultCreditCount    = 4
	DefaultIPKCreditCount = 8
	// InfiniteCreditCount disables flow control in practice.
	InfiniteCreditCount = 63
)

// Channel names an input channel end of a core.
type Channel int

const (
	ChannelIPKFIFO Channel = iota
	ChannelIPKCache
	ChannelRegister2
	ChannelRegister3
	ChannelRegister4
	ChannelRegister5
	ChannelRegister6
	ChannelRegister7
)

// Valid reports whether ch names one of a core's input channels.
func (ch Channel) Valid() bool {
	return ch >= 0 && ch < InputChannels
}

// CoreID identifies a core by its tile and its position within the tile.
type CoreID struct {
	Tile     int
	Position int
}

func (id CoreID) String() string {
	return fmt.Sprintf("%d.%d", id.Tile, id.Position)
}

// Unique returns a chip-wide index: tile*CoresPerTile + position.
func (id CoreID) Unique() int {
	return id.Tile*CoresPerTile + id.Position
}

// FromUnique is the inverse of CoreID.Unique.
func FromUnique(n int) CoreID {
	return CoreID{Tile: n / CoresPerTile, Position: n % CoresPerTile}
}

// GroupCoreID returns the core at offset index from first, counting across
// tile boundaries.
func GroupCoreID(first CoreID, index int) CoreID {
	return FromUnique(first.Unique() + index)
}

// GroupIndex is the inverse of GroupCoreID.
func GroupIndex(first, id CoreID) int {
	return id.Unique() - first.Unique()
}

// NumTiles returns how many tiles are needed for cores cores.
func NumTiles(cores int) int {
	if cores <= 0 {
		return 0
	}
	return (cores + CoresPerTile - 1) / CoresPerTile
}

// CoresThisTile returns how many of the first cores cores (counted from
// tile 0) live on the given tile.
func CoresThisTile(cores, tile int) int {
	n := cores - tile*CoresPerTile
	switch {
	case n <= 0:
		return 0
	case n > CoresPerTile:
		return CoresPerTile
	default:
		return n
	}
}

// Bitmask selects cores of one tile by position.
type Bitmask uint8

// AllCores selects positions [0, n).
func AllCores(n int) Bitmask {
	if n >= CoresPerTile {
		return 0xFF
	}
	if n <= 0 {
		return 0
	}
	return Bitmask(1<<uint(n) - 1)
}

// AllCoresExcept0 selects positions [1, n).
func AllCoresExcept0(n int) Bitmask {
	return AllCores(n) &^ 1
}

// SingleCore selects one position.
func SingleCore(position int) Bitmask {
	if position < 0 || position >= CoresPerTile {
		panic(Violation("bitmask position %d out of range", position))
	}
	return Bitmask(1 << uint(position))
}

func (b Bitmask) Has(position int) bool {
	return position >= 0 && position < CoresPerTile && b&(1<<uint(position)) != 0
}

// Cores lists the selected positions in ascending order.
func (b Bitmask) Cores() []int {
	positions := make([]int, 0, CoresPerTile)
	for p := 0; p < CoresPerTile; p++ {
		if b.Has(p) {
			positions = append(positions, p)
		}
	}
	return positions
}

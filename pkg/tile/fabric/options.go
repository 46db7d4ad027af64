package fabric

import (
	"fmt"

	"github.com/ib-77/tilenet/pkg/tile"
)

// MaxTiles bounds the grid; the layer targets small chips.
const MaxTiles = 16

// Options describes the chip to simulate.
type Options struct {
	Rows       int
	Columns    int
	InputDepth int
	IPKDepth   int
}

// DefaultOptions is a 1x2 grid with the hardware buffer depths.
func DefaultOptions() Options {
	return Options{
		Rows:       1,
		Columns:    2,
		InputDepth: tile.InputBufferDepth,
		IPKDepth:   tile.IPKFIFODepth,
	}
}

func (o Options) Tiles() int {
	return o.Rows * o.Columns
}

func (o Options) Validate() error {
	if o.Rows < 1 || o.Columns < 1 {
		return fmt.Errorf("tile grid %dx%d: need at least one tile", o.Rows, o.Columns)
	}
	if o.Tiles() > MaxTiles {
		return fmt.Errorf("tile grid %dx%d: more than %d tiles", o.Rows, o.Columns, MaxTiles)
	}
	if o.InputDepth < 1 || o.IPKDepth < 1 {
		return fmt.Errorf("buffer depths must be positive (input=%d ipk=%d)", o.InputDepth, o.IPKDepth)
	}
	return nil
}

package dataflow

import (
	"fmt"

	"github.com/ib-77/tilenet/pkg/tile"
)

const (
	MinCores = 2
	MaxCores = tile.CoresPerTile
)

// Validate checks the shape of the network: core count, one node per
// non-source core, inputs and links in range, and no cycle among the
// nodes. Links back to the source are allowed.
func (n Network) Validate() error {
	if n.Cores < MinCores || n.Cores > MaxCores {
		return fmt.Errorf("%d cores, want %d..%d: %w", n.Cores, MinCores, MaxCores, tile.ErrCoreCount)
	}
	if n.Source.Run == nil {
		return fmt.Errorf("no source: %w", tile.ErrInvalidDescriptor)
	}
	if err := n.checkLinks("source", n.Source.Outputs); err != nil {
		return err
	}

	for p := 1; p < n.Cores; p++ {
		node, ok := n.Nodes[p]
		if !ok {
			return fmt.Errorf("no node for core %d: %w", p, tile.ErrInvalidDescriptor)
		}
		if node.Op == nil || len(node.Inputs) == 0 {
			return fmt.Errorf("node %d needs an operation and at least one input: %w", p, tile.ErrInvalidDescriptor)
		}
		for _, ch := range node.Inputs {
			if !dataChannel(ch) {
				return fmt.Errorf("node %d input %d: %w", p, ch, tile.ErrInvalidDescriptor)
			}
		}
		if err := n.checkLinks(fmt.Sprintf("node %d", p), node.Outputs); err != nil {
			return err
		}
	}
	for p := range n.Nodes {
		if p < 1 || p >= n.Cores {
			return fmt.Errorf("node for core %d outside 1..%d: %w", p, n.Cores-1, tile.ErrInvalidDescriptor)
		}
	}

	return n.checkAcyclic()
}

func (n Network) checkLinks(who string, links []Link) error {
	if len(links) > MaxOutputs {
		return fmt.Errorf("%s has %d outputs, at most %d: %w", who, len(links), MaxOutputs, tile.ErrInvalidDescriptor)
	}
	for _, l := range links {
		if !dataChannel(l.Channel) || len(l.Cores) == 0 {
			return fmt.Errorf("%s link %v: %w", who, l, tile.ErrInvalidDescriptor)
		}
		for _, p := range l.Cores {
			if p < 0 || p >= n.Cores {
				return fmt.Errorf("%s links to core %d: %w", who, p, tile.ErrInvalidDescriptor)
			}
		}
	}
	return nil
}

// dataChannel excludes the instruction channels.
func dataChannel(ch tile.Channel) bool {
	return ch >= tile.ChannelRegister2 && ch < tile.InputChannels
}

func (n Network) checkAcyclic() error {
	const (
		unseen = iota
		active
		done
	)
	state := make([]int, n.Cores)

	var visit func(p int) error
	visit = func(p int) error {
		switch state[p] {
		case active:
			return fmt.Errorf("cycle through core %d: %w", p, tile.ErrInvalidDescriptor)
		case done:
			return nil
		}
		state[p] = active
		for _, l := range n.Nodes[p].Outputs {
			for _, q := range l.Cores {
				if q == 0 {
					continue
				}
				if err := visit(q); err != nil {
					return err
				}
			}
		}
		state[p] = done
		return nil
	}

	for p := 1; p < n.Cores; p++ {
		if err := visit(p); err != nil {
			return err
		}
	}
	return nil
}

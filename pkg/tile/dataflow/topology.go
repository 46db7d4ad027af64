package dataflow

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
)

// Topology is the YAML form of a network. Operations are referred to by
// name and resolved against a caller-supplied table.
type Topology struct {
	Cores  int            `yaml:"cores"`
	Source SourceTopology `yaml:"source"`
	Nodes  []NodeTopology `yaml:"nodes"`
}

type SourceTopology struct {
	Outputs []LinkTopology `yaml:"outputs"`
}

type NodeTopology struct {
	Core    int            `yaml:"core"`
	Op      string         `yaml:"op"`
	Inputs  []int          `yaml:"inputs"`
	Outputs []LinkTopology `yaml:"outputs"`
}

type LinkTopology struct {
	Cores   []int `yaml:"cores"`
	Channel int   `yaml:"channel"`
}

// ParseTopology builds a network from YAML. ops maps operation names to
// engines; source drives the network from position 0.
func ParseTopology(data []byte, ops map[string]plumb.Engine, source func(d *Driver) error) (Network, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return Network{}, fmt.Errorf("parse topology: %w", err)
	}
	return topo.Network(ops, source)
}

// Network resolves the topology into a validated network.
func (t Topology) Network(ops map[string]plumb.Engine, source func(d *Driver) error) (Network, error) {
	net := Network{
		Cores:  t.Cores,
		Source: Source{Outputs: links(t.Source.Outputs), Run: source},
		Nodes:  make(map[int]Node, len(t.Nodes)),
	}

	for _, n := range t.Nodes {
		if _, dup := net.Nodes[n.Core]; dup {
			return Network{}, fmt.Errorf("core %d described twice: %w", n.Core, tile.ErrInvalidDescriptor)
		}
		op, ok := ops[n.Op]
		if !ok {
			return Network{}, fmt.Errorf("core %d: unknown operation %q: %w", n.Core, n.Op, tile.ErrInvalidDescriptor)
		}
		inputs := make([]tile.Channel, 0, len(n.Inputs))
		for _, ch := range n.Inputs {
			inputs = append(inputs, tile.Channel(ch))
		}
		net.Nodes[n.Core] = Node{Inputs: inputs, Op: op, Outputs: links(n.Outputs)}
	}

	if err := net.Validate(); err != nil {
		return Network{}, err
	}
	return net, nil
}

func links(ls []LinkTopology) []Link {
	out := make([]Link, 0, len(ls))
	for _, l := range ls {
		out = append(out, Link{Cores: l.Cores, Channel: tile.Channel(l.Channel)})
	}
	return out
}

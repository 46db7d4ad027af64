// Package dataflow runs a static network of nodes, one per core of a tile.
//
// Position 0 is the source: it feeds the network and decides when all
// expected results have been produced. Every other position runs a node
// that repeatedly takes one word from each of its inputs, applies its
// operation and sends the result on its outputs. Nodes never see an
// end-of-stream marker; the source ends the parallel section and every node
// stops at its next channel operation.
//
// Networks are built in code or loaded from YAML with ParseTopology.
package dataflow

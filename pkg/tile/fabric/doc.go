// Package fabric simulates the on-chip network the coordination layer runs
// on: a small grid of tiles, eight cores per tile, and for every core eight
// bounded input channel ends.
//
// The fabric knows nothing about credits. It delivers messages, arbitrates
// which sender currently owns an input channel end, and applies local
// network backpressure by blocking a push into a full input buffer. Credit
// accounting lives in package channel.
package fabric

// Package loop runs a counted loop across the cores of a tile.
//
// SIMD partitions iterations statically: core i of P takes i, i+P, i+2P...
// The helper variant keeps position 0 free for data-independent work and
// hands out rounds of iterations to the other cores. Farm distributes
// iterations dynamically from a master at position 0 to workers that ask
// for more when they finish. Both write per-core results into slots owned
// by the caller and reduce them on position 0.
//
// Endpoints 2 and 3 and input channels 3 to 7 of the participants are used
// by the patterns while they run.
package loop

// Package token provides the synchronization primitives built on channels:
// zero-payload tokens, HELIX ring bindings and barriers.
//
// Barriers use endpoint SyncEndpoint and the input channels TileChannel
// (within a tile) and TilesChannel (between tiles). Callers must not keep
// their own bindings or traffic on those while a barrier is in progress.
package token

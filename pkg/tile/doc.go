// Package tile holds the vocabulary shared by every other package of the
// coordination layer:
//   - core identities and the tile geometry (CoreID, Bitmask, group helpers)
//   - channel addresses (unicast, multicast, memory)
//   - messages exchanged over channels, with their credit-return hook
//   - the sentinel errors and the ContractViolation panic value
//
// It does not move any data itself; the fabric, channel and spawn packages
// build the runtime on top of these types.
package tile

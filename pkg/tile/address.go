package tile

import "fmt"

// AddressKind distinguishes how a bound endpoint delivers messages.
type AddressKind int

const (
	KindUnbound AddressKind = iota
	// KindUnicast is a credited point-to-point connection that must be
	// acquired before use.
	KindUnicast
	// KindMulticast reaches one or more cores of the sender's tile. It has
	// no credits and is always connected.
	KindMulticast
	// KindMemory reaches a memory bank group. Always connected.
	KindMemory
)

func (k AddressKind) String() string {
	switch k {
	case KindUnicast:
		return "unicast"
	case KindMulticast:
		return "multicast"
	case KindMemory:
		return "memory"
	default:
		return "unbound"
	}
}

// Address is the destination stored in a channel endpoint.
type Address struct {
	Kind    AddressKind
	Core    CoreID
	Mask    Bitmask
	Channel Channel
	Credits int
	Bank    int
	Group   int
}

// CoreAddress builds a credited unicast address. credits must be in
// [1, InfiniteCreditCount].
func CoreAddress(tile, position int, ch Channel, credits int) Address {
	if !ch.Valid() {
		panic(Violation("channel %d out of range", ch))
	}
	if position < 0 || position >= CoresPerTile || tile < 0 {
		panic(Violation("core %d.%d out of range", tile, position))
	}
	if credits < 1 || credits > InfiniteCreditCount {
		panic(Violation("credit count %d out of range", credits))
	}
	return Address{Kind: KindUnicast, Core: CoreID{Tile: tile, Position: position}, Channel: ch, Credits: credits}
}

// MulticastAddress reaches every core in mask on the sender's tile.
func MulticastAddress(mask Bitmask, ch Channel) Address {
	if !ch.Valid() {
		panic(Violation("channel %d out of range", ch))
	}
	return Address{Kind: KindMulticast, Mask: mask, Channel: ch}
}

// MemoryAddress reaches a group of groupSize memory banks starting at bank.
func MemoryAddress(bank, groupSize int) Address {
	if bank < 0 || groupSize < 1 {
		panic(Violation("memory group %d/%d out of range", bank, groupSize))
	}
	return Address{Kind: KindMemory, Bank: bank, Group: groupSize}
}

// LocalAddress picks a multicast address when to is on the same tile as
// from and a credited unicast address otherwise.
func LocalAddress(from, to CoreID, ch Channel, credits int) Address {
	if from.Tile == to.Tile {
		return MulticastAddress(SingleCore(to.Position), ch)
	}
	return CoreAddress(to.Tile, to.Position, ch, credits)
}

// Credited reports whether the address takes part in credit flow control.
func (a Address) Credited() bool {
	return a.Kind == KindUnicast
}

func (a Address) String() string {
	switch a.Kind {
	case KindUnicast:
		return fmt.Sprintf("core(%s ch%d credits=%d)", a.Core, a.Channel, a.Credits)
	case KindMulticast:
		return fmt.Sprintf("mcast(%08b ch%d)", uint8(a.Mask), a.Channel)
	case KindMemory:
		return fmt.Sprintf("mem(bank=%d group=%d)", a.Bank, a.Group)
	default:
		return "unbound"
	}
}

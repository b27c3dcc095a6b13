package bus

import "fmt"

// Role tells which side of a round trip produced a transaction.
type Role uint8

const (
	RoleSent Role = iota
	RoleReceived
)

func (r Role) String() string {
	switch r {
	case RoleSent:
		return "sent"
	case RoleReceived:
		return "received"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Kind classifies what a transaction carries.
type Kind uint8

const (
	// KindData is a payload byte.
	KindData Kind = iota
	// KindAddress is the device address byte that follows START.
	KindAddress
	// KindOffset is the first written byte after the address (register pointer).
	KindOffset
	// KindReadback is a value read back from the controller's data register.
	KindReadback
	// KindSample is a per-cycle register sample taken by a monitor.
	KindSample
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAddress:
		return "address"
	case KindOffset:
		return "offset"
	case KindReadback:
		return "readback"
	case KindSample:
		return "sample"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Transaction is an immutable (value, role) record. It is passed by value.
type Transaction struct {
	Value uint32
	Role  Role
	Kind  Kind
	Cycle uint64
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %d @%d", t.Role, t.Kind, t.Value, t.Cycle)
}

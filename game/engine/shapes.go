package engine

import (
	"fmt"
	"strings"
)

// Kind identifies one of the seven tetromino shapes. The zero value is not a
// shape and marks an empty grid cell.
type Kind uint8

const (
	KindNone Kind = iota
	KindI
	KindO
	KindT
	KindS
	KindZ
	KindJ
	KindL
)

// AllKinds lists the playable kinds in catalog order
var AllKinds = []Kind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}

type rotationState = [4]GridPoint

var (
	rotationsI = []rotationState{
		{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
	}
	rotationsO = []rotationState{
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	}
	rotationsT = []rotationState{
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	}
	rotationsS = []rotationState{
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
	}
	rotationsZ = []rotationState{
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
	}
	rotationsJ = []rotationState{
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	}
	rotationsL = []rotationState{
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	}
)

// rotations returns the ordered rotation states of k in its local frame
func (k Kind) rotations() []rotationState {
	switch k {
	case KindI:
		return rotationsI
	case KindO:
		return rotationsO
	case KindT:
		return rotationsT
	case KindS:
		return rotationsS
	case KindZ:
		return rotationsZ
	case KindJ:
		return rotationsJ
	case KindL:
		return rotationsL
	default:
		return nil
	}
}

// RotationCount returns how many distinct rotation states k has
func (k Kind) RotationCount() int {
	return len(k.rotations())
}

// FrameWidth is the width of the local frame the rotation states live in
func (k Kind) FrameWidth() int {
	switch k {
	case KindI:
		return 4
	case KindO:
		return 2
	case KindT, KindS, KindZ, KindJ, KindL:
		return 3
	default:
		return 0
	}
}

// Color is a render hint with no gameplay effect
func (k Kind) Color() string {
	switch k {
	case KindI:
		return "cyan"
	case KindO:
		return "yellow"
	case KindT:
		return "purple"
	case KindS:
		return "green"
	case KindZ:
		return "red"
	case KindJ:
		return "blue"
	case KindL:
		return "orange"
	default:
		return ""
	}
}

// Valid reports whether k is one of the seven shapes
func (k Kind) Valid() bool {
	return k >= KindI && k <= KindL
}

func (k Kind) String() string {
	switch k {
	case KindI:
		return "I"
	case KindO:
		return "O"
	case KindT:
		return "T"
	case KindS:
		return "S"
	case KindZ:
		return "Z"
	case KindJ:
		return "J"
	case KindL:
		return "L"
	default:
		return ""
	}
}

// ParseKind converts a single shape letter into a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown piece kind %q", s)
}

// MarshalText encodes a kind as its letter
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a letter produced by MarshalText. An empty string is
// the empty kind.
func (k *Kind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = KindNone
		return nil
	}
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

package sim

import (
	"fmt"
	"strings"

	"morphtree/internal/field"
)

// ErrInvalidArgument is the same sentinel the generator uses.
var ErrInvalidArgument = field.ErrInvalidArgument

// Mode selects which baked target every particle damps toward.
type Mode uint8

const (
	Scattered Mode = iota
	Assembled
)

func (m Mode) String() string {
	switch m {
	case Scattered:
		return "scattered"
	case Assembled:
		return "assembled"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Validate rejects values outside the two known modes.
func (m Mode) Validate() error {
	if m != Scattered && m != Assembled {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidArgument, uint8(m))
	}
	return nil
}

// Toggle flips between the two modes.
func (m Mode) Toggle() Mode {
	if m == Assembled {
		return Scattered
	}
	return Assembled
}

// Action is the label a toggle control shows for the next transition.
func (m Mode) Action() string {
	if m == Assembled {
		return "DISPERSE"
	}
	return "ASSEMBLE TREE"
}

// ParseMode accepts the lower-case names plus the legacy SCATTERED / TREE_SHAPE tags.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scattered", "scatter":
		return Scattered, nil
	case "assembled", "tree", "tree_shape":
		return Assembled, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
}

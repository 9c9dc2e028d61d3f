package randomnft

import "github.com/holiman/uint256"

// MaxChanceValue is the size of the modulo space random values are reduced
// into. The last category boundary must equal it.
const MaxChanceValue = 100

// Selector maps a value in [0, MaxChanceValue) to a category using cumulative
// boundaries. Category i owns the half-open band [bounds[i-1], bounds[i]).
type Selector struct {
	bounds []uint64
}

// NewSelector validates the boundaries and returns a selector over them.
func NewSelector(bounds []uint64) (*Selector, error) {
	if len(bounds) == 0 || len(bounds) > MaxChanceValue {
		return nil, ErrInvalidBoundaries
	}
	var prev uint64
	for _, b := range bounds {
		if b <= prev {
			return nil, ErrInvalidBoundaries
		}
		prev = b
	}
	if bounds[len(bounds)-1] != MaxChanceValue {
		return nil, ErrInvalidBoundaries
	}
	return &Selector{bounds: append([]uint64(nil), bounds...)}, nil
}

// Select returns the first category whose boundary exceeds modded.
func (s *Selector) Select(modded uint64) (uint8, error) {
	for i, b := range s.bounds {
		if modded < b {
			return uint8(i), nil
		}
	}
	return 0, ErrRangeOutOfBounds
}

// Boundary returns the upper edge of the band owned by category index.
func (s *Selector) Boundary(index int) (uint64, error) {
	if index < 0 || index >= len(s.bounds) {
		return 0, ErrRangeOutOfBounds
	}
	return s.bounds[index], nil
}

// Boundaries returns a copy of the configured boundaries.
func (s *Selector) Boundaries() []uint64 {
	return append([]uint64(nil), s.bounds...)
}

// Len reports the number of categories.
func (s *Selector) Len() int { return len(s.bounds) }

// ModValue reduces a 256-bit random word into the selector's modulo space.
func ModValue(random *uint256.Int) uint64 {
	if random == nil {
		return 0
	}
	var out uint256.Int
	out.Mod(random, uint256.NewInt(MaxChanceValue))
	return out.Uint64()
}

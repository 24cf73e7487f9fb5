// Package reg defines the physical register model shared by the rule table,
// the arenas, and the register allocator: register masks, aliasing, and the
// handful of queries the allocator needs to answer ("is this stacked?",
// "what does writing this register disturb?").
package reg

import "math/bits"

// Mask is a bitset over the architecture's physical registers (the
// original's reg_t). The zero Mask denotes "the stack", a pseudo-location
// used by spill/reload bridging rather than a real register.
type Mask uint32

// Lowest returns the lowest-numbered register in m, and false if m is empty.
// This is the Go shape of the original's findfirst().
func (m Mask) Lowest() (Mask, bool) {
	if m == 0 {
		return 0, false
	}
	return Mask(1) << bits.TrailingZeros32(uint32(m)), true
}

// Contains reports whether m and other share at least one bit.
func (m Mask) Contains(other Mask) bool {
	return m&other != 0
}

// Empty reports whether the mask selects no register.
func (m Mask) Empty() bool {
	return m == 0
}

// Register is one physical register as described by the architecture oracle.
type Register struct {
	// ID is this register's single-bit identifier within a Mask.
	ID Mask
	// Uses is the aliasing mask: the set of register bits whose values are
	// disturbed when this register is written. A register always aliases
	// itself, so Uses must include ID.
	Uses Mask
	// IsStacked is true for registers the architecture allocates implicitly
	// by evaluation order (e.g. an x87-style value stack). Such registers
	// never participate in the linear allocator.
	IsStacked bool
}

// File is the fixed set of physical registers an architecture oracle
// exposes. It answers the aliasing and stacked-ness queries the allocator
// needs without the allocator ever iterating registers().
type File struct {
	regs []Register
}

// NewFile builds a File from the architecture's register table. The slice is
// retained, not copied; the oracle must not mutate it afterward.
func NewFile(regs []Register) File {
	return File{regs: regs}
}

// Count returns the number of physical registers in the file.
func (f File) Count() int {
	return len(f.regs)
}

// ConflictsWith returns the union of Uses for every register whose ID bit is
// set in m: the full set of registers disturbed by writing to any register
// in m. This is the original's find_conflicting_registers().
func (f File) ConflictsWith(m Mask) Mask {
	var conflicting Mask
	for _, r := range f.regs {
		if r.ID&m != 0 {
			conflicting |= r.Uses
		}
	}
	return conflicting
}

// IsStacked reports whether m (assumed to be a single-bit mask naming one
// register) is a stacked register. Panics if m does not name a register in
// the file, mirroring the original's assert(false) on an unknown register.
func (f File) IsStacked(m Mask) bool {
	for _, r := range f.regs {
		if r.ID&m != 0 {
			return r.IsStacked
		}
	}
	panic("reg: IsStacked called with a mask matching no register in the file")
}

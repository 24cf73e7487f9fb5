package codegen

import (
	"fmt"
	"strings"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
)

// Kind classifies a FatalError, matching the taxonomy in spec §7.
type Kind int

const (
	// KindCapacity: an arena overflowed its fixed capacity.
	KindCapacity Kind = iota
	// KindUnmatched: no rule in the table matched a pending node.
	KindUnmatched
	// KindDeadlock: the register allocator exhausted every policy.
	KindDeadlock
)

// FatalError is what the codegen core panics with for every abnormal
// condition named in spec §7. All are programmer errors — rule-table bugs or
// hitting a hardcoded capacity limit — never user errors, so there is no
// local recovery; a caller that wants a process exit code recovers once at
// its own top-level boundary (see cmd/midgen).
type FatalError struct {
	Kind Kind
	msg  string
}

func (e *FatalError) Error() string { return e.msg }

func capacityError(what string) *FatalError {
	return &FatalError{Kind: KindCapacity, msg: what}
}

func unmatchedError(n *arena.Node) *FatalError {
	var b strings.Builder
	fmt.Fprintf(&b, "no rule matches 0x%x := op(0x%x)\n", n.DesiredReg, n.Op)
	b.WriteString("Internal compiler error")
	return &FatalError{Kind: KindUnmatched, msg: b.String()}
}

// deadlockDump describes one in-flight instruction for the deadlock
// post-mortem, mirroring the original's unconditional (#if 1) dump in
// deadlock().
type deadlockDump struct {
	index       arena.InstrIndex
	ruleID      int
	produced    reg.Mask
	input       reg.Mask
	output      reg.Mask
	consumesIdx []arena.InstrIndex
	consumesReg []reg.Mask
}

func deadlockError(ruleID int, dumps []deadlockDump) *FatalError {
	var b strings.Builder
	for _, d := range dumps {
		fmt.Fprintf(&b, "insn %d ruleid %d produces 0x%x inputs 0x%x outputs 0x%x\n",
			d.index, d.ruleID, d.produced, d.input, d.output)
		for i, from := range d.consumesIdx {
			fmt.Fprintf(&b, "  consumes 0x%x from insn %d\n", d.consumesReg[i], from)
		}
	}
	fmt.Fprintf(&b, "register allocation deadlock (rule %d contains impossible situation)", ruleID)
	return &FatalError{Kind: KindDeadlock, msg: b.String()}
}

// Package arena provides the two bounded, index-addressed arenas the
// codegen core fills during one Generate call: the pending-node work stack
// and the linear instruction stream. Index addressing (rather than pointers)
// is deliberate: a Node's Producer and Consumer back-references and an
// Instruction's child slots would otherwise form reference cycles that
// Reset could not cheaply tear down.
package arena

import "github.com/rnshah9/midgen/reg"

// TemplateDepth is the fixed depth of a rule's match template, and therefore
// the number of child slots an Instruction carries. This mirrors
// INSTRUCTION_TEMPLATE_DEPTH, a true compile-time constant in the original
// since it sizes fixed-size arrays embedded directly in structs.
const TemplateDepth = 4

// SameAsResult is the sentinel DesiredReg value meaning "whatever register
// the producing instruction ends up writing" (REG_SAME_AS_INSTRUCTION_RESULT).
// It can never collide with a real register mask because it sets a bit
// beyond any realistic architecture's register count.
const SameAsResult reg.Mask = 1 << 31

// NodeIndex addresses a Node within a Nodes arena. NoNode (-1) addresses
// nothing; the zero value addresses the first node.
type NodeIndex int32

// NoNode is the invalid/absent NodeIndex.
const NoNode NodeIndex = -1

// InstrIndex addresses an Instruction within an Instructions arena.
type InstrIndex int32

// NoInstr is the invalid/absent InstrIndex.
const NoInstr InstrIndex = -1

// Node is a mid-node: an expression-tree node carrying an operator code and
// operator-specific immediate data, up to two children, and the bookkeeping
// the allocator needs once it is scheduled as an instruction operand.
type Node struct {
	// Op is the operator code used by the rule matcher's template
	// comparison; its meaning is entirely architecture-defined.
	Op byte
	// Data is an operator-specific immediate (e.g. a constant value, a
	// symbol id); the core never interprets it.
	Data int64

	Left, Right NodeIndex

	// DesiredReg is the mask of registers the consumer would like this
	// node's value in. Zero means the node produces no value. SameAsResult
	// is a sentinel meaning "whatever the producing instruction writes".
	DesiredReg reg.Mask
	// ProducedReg is the single-bit register actually chosen by the
	// allocator, or zero before allocation / for stacked producers.
	ProducedReg reg.Mask

	// Consumer is the instruction that will consume this node's value.
	Consumer InstrIndex
	// Producer is the instruction that produces this node's value, set once
	// the node is scheduled as that instruction's result.
	Producer InstrIndex
}

// Regmove is one item of a parallel register move list. Src == 0 means "pop
// from the stack"; Dest == 0 means "push to the stack"; both nonzero is a
// plain register-to-register move.
type Regmove struct {
	Src, Dest reg.Mask
	Next      *Regmove
}

// Instruction is one entry in the linear instruction stream. Its position in
// the Instructions arena is the sole liveness coordinate: a lower index
// executes later, since the stream is filled root-first and emitted in
// reverse.
type Instruction struct {
	RuleID int
	// N holds the surviving child node slots this instruction's rule kept,
	// indexed exactly as the rule's CopyableNodes/RegisterNodes bitmasks
	// describe. NoNode marks an unused slot.
	N [TemplateDepth]NodeIndex

	ProducableRegs reg.Mask
	ProducedReg    reg.Mask

	// InputRegs is the mask of registers that must be live at this
	// instruction's entry; OutputRegs is the mask clobbered by it. Both are
	// widened during allocation to record live ranges passing through this
	// instruction.
	InputRegs, OutputRegs reg.Mask

	// FirstReload runs immediately before the instruction is emitted;
	// FirstSpill runs immediately after. This before/after split is
	// invariant (spec §4.G).
	FirstReload, FirstSpill *Regmove
	lastReload              *Regmove
}

// AppendReload appends a reload move to the tail of FirstReload, preserving
// insertion order (the original tracks last_reload explicitly for this).
func (insn *Instruction) AppendReload(src, dest reg.Mask) *Regmove {
	m := &Regmove{Src: src, Dest: dest}
	if insn.FirstReload == nil {
		insn.FirstReload = m
	}
	if insn.lastReload != nil {
		insn.lastReload.Next = m
	}
	insn.lastReload = m
	return m
}

// PrependSpill prepends a spill move to FirstSpill (list order among spills
// never matters: the shuffler treats the list as an unordered parallel-move
// set, so prepending is simplest, mirroring the original's create_spill).
func (insn *Instruction) PrependSpill(src, dest reg.Mask) *Regmove {
	m := &Regmove{Src: src, Dest: dest, Next: insn.FirstSpill}
	insn.FirstSpill = m
	return m
}

// Nodes is the bounded LIFO work-stack of mid-nodes still to be matched,
// plus the backing storage every NodeIndex addresses into.
type Nodes struct {
	storage  []Node
	stack    []NodeIndex
	capacity int
	high     int
}

// NewNodes allocates a Nodes arena with the given capacity (NUM_NODES in the
// original), bounding both total node storage and the pending-match stack.
// The original only bounds the pending stack this way, since its node
// storage is unbounded front-end-owned heap memory; unifying the two bounds
// here follows spec §9's Design Notes recommendation to extend
// index-addressed arenas from instructions to nodes (see DESIGN.md).
func NewNodes(capacity int) *Nodes {
	return &Nodes{storage: make([]Node, 0, capacity), capacity: capacity}
}

// Reset clears the arena for a new Generate call, reusing backing storage.
func (ns *Nodes) Reset() {
	ns.storage = ns.storage[:0]
	ns.stack = ns.stack[:0]
}

// ResetPending clears only the pending-match work stack, leaving previously
// allocated node storage intact. Generate calls this (rather than Reset) at
// entry, since the tree it is about to walk already lives in node storage.
func (ns *Nodes) ResetPending() {
	ns.stack = ns.stack[:0]
}

// HighWaterMark is the largest number of nodes simultaneously pending across
// the arena's lifetime (maxnodecount).
func (ns *Nodes) HighWaterMark() int { return ns.high }

// New allocates a fresh Node in the arena and returns its index. It does not
// push the node onto the work stack; callers that want it matched must call
// Push explicitly (mirroring that push_node is a separate step from node
// creation in the original).
func (ns *Nodes) New(op byte, data int64, left, right NodeIndex) NodeIndex {
	if len(ns.storage) == ns.capacity {
		panic(&CapacityError{What: "ran out of nodes"})
	}
	ns.storage = append(ns.storage, Node{Op: op, Data: data, Left: left, Right: right, Consumer: NoInstr, Producer: NoInstr})
	return NodeIndex(len(ns.storage) - 1)
}

// At returns a pointer to the node at idx. The pointer is invalidated by any
// subsequent call to New (slice growth may reallocate) — callers needing a
// stable handle across New calls must re-fetch by index.
func (ns *Nodes) At(idx NodeIndex) *Node {
	return &ns.storage[idx]
}

// Push schedules idx for matching. This is the original's push_node, fatal
// on overflow ("ran out of nodes").
func (ns *Nodes) Push(idx NodeIndex) {
	if len(ns.stack) == ns.capacity {
		panic(&CapacityError{What: "ran out of nodes"})
	}
	ns.stack = append(ns.stack, idx)
	if len(ns.stack) > ns.high {
		ns.high = len(ns.stack)
	}
}

// Pop removes and returns the most recently pushed pending node. The second
// return is false once the stack is empty.
func (ns *Nodes) Pop() (NodeIndex, bool) {
	if len(ns.stack) == 0 {
		return NoNode, false
	}
	n := len(ns.stack) - 1
	idx := ns.stack[n]
	ns.stack = ns.stack[:n]
	return idx, true
}

// Pending reports whether any node still awaits matching.
func (ns *Nodes) Pending() bool { return len(ns.stack) != 0 }

// Instructions is the monotonically-growing linear instruction stream filled
// by the matcher/allocator and walked backward by the emitter driver.
type Instructions struct {
	storage []Instruction
	high    int
}

// NewInstructions allocates an Instructions arena with the given capacity
// (NUM_INSTRUCTIONS in the original).
func NewInstructions(capacity int) *Instructions {
	return &Instructions{storage: make([]Instruction, 0, capacity)}
}

// Reset clears the arena for a new Generate call, reusing backing storage.
func (is *Instructions) Reset() {
	is.storage = is.storage[:0]
}

// HighWaterMark is the largest instruction count ever reached
// (maxinstructioncount).
func (is *Instructions) HighWaterMark() int { return is.high }

// Len returns the number of instructions filled so far.
func (is *Instructions) Len() int { return len(is.storage) }

// Append allocates the next instruction slot and returns its index. Fatal on
// overflow ("instruction tree too big").
func (is *Instructions) Append() InstrIndex {
	if len(is.storage) == cap(is.storage) {
		panic(&CapacityError{What: "instruction tree too big"})
	}
	is.storage = append(is.storage, Instruction{N: [TemplateDepth]NodeIndex{NoNode, NoNode, NoNode, NoNode}})
	if len(is.storage) > is.high {
		is.high = len(is.storage)
	}
	return InstrIndex(len(is.storage) - 1)
}

// At returns a pointer to the instruction at idx.
func (is *Instructions) At(idx InstrIndex) *Instruction {
	return &is.storage[idx]
}

// CapacityError is raised (via panic) when either arena overflows its fixed
// capacity; it is always a programmer error per spec §7, never a recoverable
// runtime condition.
type CapacityError struct {
	What string
}

func (e *CapacityError) Error() string { return e.What }

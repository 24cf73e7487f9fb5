// Package toyarch is a minimal architecture oracle used by the codegen
// package's own tests and by cmd/midgen's demo: three unaliased,
// non-stacked integer registers (A, B, C), five mid-node operators
// (constant, memory load, negate, add, statement sink), and a rule table small enough to
// read in one sitting while still exercising every policy in spec §4.E and
// every shuffler case in spec §4.F. It plays the role spec §1 carves out for
// "the architecture description" — the rule table, register file, and
// emitter primitives the core treats as an opaque external collaborator.
package toyarch

import (
	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
	"github.com/rnshah9/midgen/rule"
)

// Operator codes for the toy mid-node language.
const (
	// OpConst is a leaf carrying an immediate value in Node.Data.
	OpConst byte = 1
	// OpLoad is a leaf carrying a memory address in Node.Data.
	OpLoad byte = 2
	// OpNeg negates its Left child.
	OpNeg byte = 3
	// OpAdd adds its Left and Right children.
	OpAdd byte = 4
	// OpSink is a statement-level wrapper that consumes its Left child's
	// value and produces nothing. Every tree handed to Generate must be
	// rooted at a no-result node exactly like this in a real compiler (a
	// store, a return, a call for effect); toyarch exposes it explicitly so
	// tests can build trees whose top expression still has a real consumer,
	// rather than leaving the root's Consumer dangling.
	OpSink byte = 5
)

// Register masks for the toy file.
const (
	A reg.Mask = 1 << iota
	B
	C
)

// All is the full allocatable register class.
const All = A | B | C

// Registers returns the toy register file: three registers, no aliasing, no
// stacked registers.
func Registers() []reg.Register {
	return []reg.Register{
		{ID: A, Uses: A},
		{ID: B, Uses: B},
		{ID: C, Uses: C},
	}
}

// Architecture is a rule.Oracle implementation. LoadRegs constrains which
// registers the CONST/LOAD-producing rules may target; New sets it from its
// argument. Setting it to a single register (spec §8 scenario 2) forces a
// register move (a spill or a reload) whenever a load runs while another
// load's value is still live, since both loads compete for the same
// physical register.
type Architecture struct {
	LoadRegs reg.Mask
	rules    rule.Table
}

// New builds a toy architecture whose constant/load rules are constrained to
// loadRegs (pass All for the unconstrained case).
func New(loadRegs reg.Mask) *Architecture {
	a := &Architecture{LoadRegs: loadRegs}
	a.rules = rule.Table{
		// Rule 0: NEG(CONST 0) -> CONST(-0). A rewrite rule with a
		// predicate so it only fires on exactly the zero-constant case;
		// anything else falls through to the generic negate rule below.
		{
			MatchBytes: [arena.TemplateDepth]byte{OpNeg, OpConst, 0, 0},
			Flags:      rule.HasRewriter | rule.HasPredicates,
		},
		// Rule 1: load an immediate constant.
		{
			MatchBytes:               [arena.TemplateDepth]byte{OpConst, 0, 0, 0},
			CompatibleProducableRegs: loadRegs,
			ProducableRegs:           loadRegs,
			CopyableNodes:            0b0001,
		},
		// Rule 2: load from memory.
		{
			MatchBytes:               [arena.TemplateDepth]byte{OpLoad, 0, 0, 0},
			CompatibleProducableRegs: loadRegs,
			ProducableRegs:           loadRegs,
			CopyableNodes:            0b0001,
		},
		// Rule 3: generic negate (child not a zero constant).
		{
			MatchBytes:               [arena.TemplateDepth]byte{OpNeg, 0, 0, 0},
			CompatibleProducableRegs: All,
			ProducableRegs:           All,
			ConsumableRegs:           [arena.TemplateDepth]reg.Mask{0, All, 0, 0},
			CopyableNodes:            0b0011,
			RegisterNodes:            0b0010,
		},
		// Rule 4: add two subexpressions, each matched as a further
		// sub-instruction.
		{
			MatchBytes:               [arena.TemplateDepth]byte{OpAdd, 0, 0, 0},
			CompatibleProducableRegs: All,
			ProducableRegs:           All,
			ConsumableRegs:           [arena.TemplateDepth]reg.Mask{0, All, All, 0},
			CopyableNodes:            0b0111,
			RegisterNodes:            0b0110,
		},
		// Rule 5: sink. A statement-level wrapper with no producable
		// register of its own, so it only matches a zero desired register
		// (the gating check every non-rewriter rule applies below); its one
		// child is pushed as a fresh sub-instruction with a real Consumer,
		// which is what lets a test tree's top expression go through the
		// same allocator path a real statement's operand would.
		{
			MatchBytes:     [arena.TemplateDepth]byte{OpSink, 0, 0, 0},
			ConsumableRegs: [arena.TemplateDepth]reg.Mask{0, All, 0, 0},
			CopyableNodes:  0b0011,
			RegisterNodes:  0b0010,
		},
	}
	return a
}

// Registers implements rule.Oracle.
func (a *Architecture) Registers() []reg.Register { return Registers() }

// Rules implements rule.Oracle.
func (a *Architecture) Rules() rule.Table { return a.rules }

// PopulateMatchBuffer implements rule.Oracle. scratch[0] already holds the
// node being matched; this fills matchbytes with its operator and its
// children's operators, and scratch[1]/scratch[2] with the children
// themselves.
func (a *Architecture) PopulateMatchBuffer(nodes *arena.Nodes, _ *arena.Instruction, scratch []arena.NodeIndex, matchbytes []byte) {
	n := nodes.At(scratch[0])
	matchbytes[0] = n.Op
	scratch[1], scratch[2], scratch[3] = arena.NoNode, arena.NoNode, arena.NoNode

	if n.Left != arena.NoNode {
		scratch[1] = n.Left
		matchbytes[1] = nodes.At(n.Left).Op
	}
	if n.Right != arena.NoNode {
		scratch[2] = n.Right
		matchbytes[2] = nodes.At(n.Right).Op
	}
}

// MatchPredicate implements rule.Oracle. The only predicated rule in the
// toy table is rule 0 (NEG(CONST) rewrite), which fires only when the
// constant is exactly zero.
func (a *Architecture) MatchPredicate(ruleID int, nodes *arena.Nodes, scratch []arena.NodeIndex) bool {
	switch ruleID {
	case 0:
		return nodes.At(scratch[1]).Data == 0
	default:
		panic("toyarch: MatchPredicate called for a rule with no predicate")
	}
}

// RewriteNode implements rule.Oracle. Rule 0 rewrites NEG(CONST x) into
// CONST(-x); it is the table's only rewriter.
func (a *Architecture) RewriteNode(ruleID int, nodes *arena.Nodes, scratch []arena.NodeIndex) arena.NodeIndex {
	switch ruleID {
	case 0:
		x := nodes.At(scratch[1]).Data
		return nodes.New(OpConst, -x, arena.NoNode, arena.NoNode)
	default:
		panic("toyarch: RewriteNode called for a rule with no rewriter")
	}
}

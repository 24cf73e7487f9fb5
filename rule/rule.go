// Package rule defines the static, architecture-supplied instruction
// selection table and the Oracle contract the codegen core calls into. The
// core treats rules and the oracle's predicate/rewrite bodies as opaque data
// and functions supplied by the architecture description (out of scope per
// spec §1) — this package only names the shape of that contract.
package rule

import (
	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
)

// Flags are the per-rule behavior bits.
type Flags uint8

const (
	// HasRewriter marks a rewrite rule: matching it synthesizes a
	// replacement subtree via Oracle.RewriteNode instead of emitting an
	// instruction.
	HasRewriter Flags = 1 << iota
	// HasPredicates marks a rule whose match also requires
	// Oracle.MatchPredicate to return true.
	HasPredicates
)

// Rule is one row of the architecture's instruction selection table.
type Rule struct {
	// MatchBytes is the fixed-depth match template: a zero byte at position
	// i is a wildcard, a nonzero byte must equal the data byte the oracle
	// populated at that position.
	MatchBytes [arena.TemplateDepth]byte

	Flags Flags

	// CompatibleProducableRegs gates generation-rule matching: nonzero means
	// "only match if the node's DesiredReg intersects this"; zero means
	// "only match if the node's DesiredReg is also empty" (a statement-level
	// rule). Meaningless (and ignored) on a rewrite rule.
	CompatibleProducableRegs reg.Mask
	// ProducableRegs is the register class this rule's instruction can
	// write its result into.
	ProducableRegs reg.Mask
	// UsesRegs is the set of other registers this instruction clobbers,
	// seeded into the instruction's OutputRegs at match time.
	UsesRegs reg.Mask
	// ConsumableRegs[i] is the desired register mask pushed onto a child
	// node at slot i when RegisterNodes selects it.
	ConsumableRegs [arena.TemplateDepth]reg.Mask

	// CopyableNodes bit i: retain the matched child at template slot i into
	// the instruction's N[i]. RegisterNodes bit i (only meaningful when
	// CopyableNodes bit i is also set): additionally push that child onto
	// the node work-stack as a further sub-instruction to match.
	CopyableNodes  uint8
	RegisterNodes  uint8
}

// Table is the fixed, ordered sequence of rules for one architecture. Rule
// order is part of the architecture contract (spec §9 Design Notes):
// iteration is always first-match-wins in declaration order, and a port must
// never reorder it.
type Table []Rule

// Oracle is the architecture description the codegen core consumes as an
// external collaborator (spec §6). Every method here is called as a pure
// oracle: the core never inspects its internals, only its answers.
type Oracle interface {
	// Registers returns the fixed register file.
	Registers() []reg.Register
	// Rules returns the fixed rule table, in match-priority order.
	Rules() Table

	// PopulateMatchBuffer fills matchbytes with the template-shaped prefix
	// of the tree rooted at scratch[0], and fills scratch[1:] with whichever
	// child nodes the template depth reaches. scratch[0] must already hold
	// the node being matched when this is called; producer is the
	// instruction slot being filled, passed through for oracles that need
	// it for context (the original passes the Instruction*, not the node,
	// to this hook). The oracle treats scratch as both input (slot 0) and
	// output (slots 1..TemplateDepth-1), alongside matchbytes.
	PopulateMatchBuffer(nodes *arena.Nodes, producer *arena.Instruction, scratch []arena.NodeIndex, matchbytes []byte)

	// MatchPredicate evaluates a rule's manual predicate against the
	// matched nodes. Only called for rules with HasPredicates set.
	MatchPredicate(ruleID int, nodes *arena.Nodes, scratch []arena.NodeIndex) bool

	// RewriteNode synthesizes a replacement node for a matched rewrite
	// rule. The returned node's DesiredReg and Consumer are overwritten by
	// the core immediately afterward; the oracle need not set them.
	RewriteNode(ruleID int, nodes *arena.Nodes, scratch []arena.NodeIndex) arena.NodeIndex
}

// MoveEmitter is the arch_emit_move/arch_emit_comment collaborator (spec
// §6): the primitive the shuffler and the finalizer use to produce output.
type MoveEmitter interface {
	// EmitMove emits one machine move. Src == 0 means pop from the stack;
	// Dest == 0 means push to the stack; both nonzero is a register move.
	EmitMove(src, dest reg.Mask)
	// EmitComment emits a purely informational comment.
	EmitComment(format string, args ...any)
}

// InstructionEmitter is the emit_one_instruction collaborator (spec §6).
type InstructionEmitter interface {
	// EmitInstruction emits the machine instruction bound to ruleID, reading
	// operand registers from insn.N and insn.ProducedReg. nodes resolves the
	// NodeIndex values in insn.N.
	EmitInstruction(ruleID int, insn *arena.Instruction, nodes *arena.Nodes)
}

// Package codegen is the code generation core: bottom-up tree pattern
// matching (§4.C/D), a bounded-window linear-scan register allocator
// (§4.E), parallel register-move shuffling (§4.F), and the reverse-order
// emitter driver (§4.G) described by spec.md. It consumes an architecture
// description (rule.Oracle) as an external collaborator and never
// implements one itself.
//
// A *Generator is single-threaded and non-reentrant: one Generate call must
// run to completion before another begins on the same Generator, exactly as
// the original's process-wide static arenas required. Distinct Generator
// values are fully independent, so concurrent codegen across independent
// compilation units is a matter of constructing one Generator per goroutine,
// not locking a shared one.
package codegen

import (
	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
	"github.com/rnshah9/midgen/rule"
)

// Generator holds the two bounded arenas and the architecture collaborators
// for one code generation session. Build trees with Generator.Nodes(), then
// call Generate on the root.
type Generator struct {
	oracle  rule.Oracle
	mover   rule.MoveEmitter
	emitter rule.InstructionEmitter
	regs    reg.File

	nodes *arena.Nodes
	insns *arena.Instructions

	// scratch is the reusable TemplateDepth-sized buffer the matcher passes
	// to PopulateMatchBuffer and MatchPredicate; slot 0 is always the node
	// currently being matched.
	scratch []arena.NodeIndex
}

// Config holds a Generator's capacity tunables. Build one with NewConfig and
// the WithX methods, each of which returns an independent copy rather than
// mutating the receiver, so a base Config can be specialized for several
// Generators without them sharing state.
type Config struct {
	numInstructions int
	numNodes        int
}

// NewConfig returns the default configuration: NUM_INSTRUCTIONS=200,
// NUM_NODES=200 in the original.
func NewConfig() *Config {
	return &Config{numInstructions: 200, numNodes: 200}
}

// clone ensures all fields are copied even as the Config grows new ones.
func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithInstructionCapacity overrides NUM_INSTRUCTIONS.
func (c *Config) WithInstructionCapacity(n int) *Config {
	ret := c.clone()
	ret.numInstructions = n
	return ret
}

// WithNodeCapacity overrides NUM_NODES.
func (c *Config) WithNodeCapacity(n int) *Config {
	ret := c.clone()
	ret.numNodes = n
	return ret
}

// New builds a Generator around the given architecture oracle, output
// collaborators, and capacity configuration.
func New(oracle rule.Oracle, mover rule.MoveEmitter, emitter rule.InstructionEmitter, cfg *Config) *Generator {
	return &Generator{
		oracle:  oracle,
		mover:   mover,
		emitter: emitter,
		regs:    reg.NewFile(oracle.Registers()),
		nodes:   arena.NewNodes(cfg.numNodes),
		insns:   arena.NewInstructions(cfg.numInstructions),
		scratch: make([]arena.NodeIndex, arena.TemplateDepth),
	}
}

// Nodes exposes the node arena so a caller (playing the front-end's role)
// can build a mid-node tree before calling Generate. Call Reset first to
// start a fresh tree; Generate itself only resets the instruction arena and
// the pending-match stack, not node storage, since node storage holds the
// tree Generate is about to walk.
func (g *Generator) Nodes() *arena.Nodes { return g.nodes }

// Reset clears both arenas, discarding any tree under construction. Call it
// before building a new tree with Nodes().
func (g *Generator) Reset() {
	g.nodes.Reset()
	g.insns.Reset()
}

// NodeStats returns the high-water marks generate_finalise reports.
func (g *Generator) NodeStats() (maxNodes, maxInstructions int) {
	return g.nodes.HighWaterMark(), g.insns.HighWaterMark()
}

// Finalise emits a summary comment with peak node and instruction counts,
// matching the original's generate_finalise() message shape exactly.
func (g *Generator) Finalise() {
	maxNodes, maxInstructions := g.NodeStats()
	g.mover.EmitComment("max nodes = %d, max instructions = %d", maxNodes, maxInstructions)
}

// Discard recursively releases a mid-node subtree. Under the arena model
// node storage is reclaimed in bulk by the next Reset rather than per node,
// so Discard has no storage effect; it exists for API parity with spec §6
// and only walks the subtree, without checking or changing any node.
func (g *Generator) Discard(root arena.NodeIndex) {
	if root == arena.NoNode {
		return
	}
	n := g.nodes.At(root)
	g.Discard(n.Left)
	g.Discard(n.Right)
}

// Generate consumes one expression tree rooted at root, matching,
// rewriting, allocating, and finally emitting its instructions and moves via
// the architecture oracle's collaborators. root must already live in
// g.Nodes() (built since the last Reset).
func (g *Generator) Generate(root arena.NodeIndex) {
	defer convertCapacityPanic()

	g.insns.Reset()
	g.nodes.ResetPending()
	g.nodes.Push(root)

	for g.nodes.Pending() {
		producer := g.insns.Append()
		n, _ := g.nodes.Pop()
		n, ruleID := g.matchAndRewrite(producer, n)
		g.setRuleID(producer, ruleID)
		g.schedule(producer, n)
	}

	g.emit()
}

// convertCapacityPanic re-raises an in-flight *arena.CapacityError as a
// *FatalError with KindCapacity, so every panic Generate can produce is a
// *FatalError regardless of which arena raised it (spec §7's unified
// contract). arena cannot import codegen itself (codegen already imports
// arena), so the conversion happens at this boundary instead.
func convertCapacityPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ce, ok := r.(*arena.CapacityError); ok {
		panic(capacityError(ce.Error()))
	}
	panic(r)
}

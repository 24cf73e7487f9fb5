package codegen

import "github.com/rnshah9/midgen/arena"

// emit walks the instruction array from the last-filled entry downward,
// which restores program order because the matcher filled it root-first
// (§4.G). Reloads run before each instruction, spills after; this ordering
// is invariant.
func (g *Generator) emit() {
	for i := arena.InstrIndex(g.insns.Len()) - 1; i >= 0; i-- {
		insn := g.insns.At(i)

		shuffle(g.mover, insn.FirstReload)
		insn.FirstReload = nil

		g.emitter.EmitInstruction(insn.RuleID, insn, g.nodes)

		shuffle(g.mover, insn.FirstSpill)
		insn.FirstSpill = nil
	}
}

package codegen

import (
	"fmt"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/codegen/codegendebug"
	"github.com/rnshah9/midgen/reg"
)

// schedule sets up the matched instruction's child slots (§4.E's scheduling
// half: CopyableNodes/RegisterNodes) and then, for result-producing
// instructions, invokes the allocator proper.
func (g *Generator) schedule(producer arena.InstrIndex, n arena.NodeIndex) {
	insn := g.insns.At(producer)
	r := &g.oracle.Rules()[insn.RuleID]

	copymask, regmask := r.CopyableNodes, r.RegisterNodes
	for i := 0; i < arena.TemplateDepth; i++ {
		child := g.scratch[i]
		if copymask&1 != 0 {
			insn.N[i] = child
			if regmask&1 != 0 && child != arena.NoNode {
				g.nodes.Push(child)
				cn := g.nodes.At(child)
				cn.DesiredReg = r.ConsumableRegs[i]
				cn.Consumer = producer
			}
		}
		copymask >>= 1
		regmask >>= 1
	}

	g.nodes.At(n).Producer = producer

	if insn.ProducableRegs.Empty() {
		return
	}
	if g.regs.IsStacked(insn.ProducableRegs) {
		return
	}

	g.allocate(producer, n)
	g.backpropagateSameAsResult(producer)
}

// setRuleID is called by the matcher/scheduler boundary: matchAndRewrite
// returns the matched rule id, which the generator loop stores on the
// instruction before scheduling runs. Kept as a tiny setter so generator.go
// stays a plain orchestration loop.
func (g *Generator) setRuleID(producer arena.InstrIndex, ruleID int) {
	insn := g.insns.At(producer)
	r := &g.oracle.Rules()[ruleID]
	insn.RuleID = ruleID
	insn.ProducableRegs = r.ProducableRegs
	insn.OutputRegs = r.UsesRegs
}

// allocate implements §4.E's four-policy search for the producer/consumer
// pair: n is produced by the instruction at producer and consumed by the
// instruction at n's Consumer. Because instructions fill the array in
// consumption order, producer occupies a strictly higher index than
// consumer; the live range spans [consumer+1, producer-1] inclusive.
func (g *Generator) allocate(producer arena.InstrIndex, n arena.NodeIndex) {
	node := g.nodes.At(n)
	consumerIdx := node.Consumer
	if consumerIdx == arena.NoInstr {
		panic("codegen: BUG: allocate called on a node with no consumer")
	}
	producerInsn := g.insns.At(producer)
	consumerInsn := g.insns.At(consumerIdx)

	blocked := g.blockedRegisters(consumerIdx+1, producer-1)

	// Policy 1: direct allocation.
	if choice, ok := (node.DesiredReg &
		producerInsn.ProducableRegs &^
		(blocked | producerInsn.OutputRegs | consumerInsn.InputRegs)).Lowest(); ok {
		node.ProducedReg = choice
		producerInsn.ProducedReg = choice
		conflicting := g.regs.ConflictsWith(choice)
		consumerInsn.InputRegs |= conflicting
		g.widenLiveRange(consumerIdx+1, producer-1, conflicting)
		producerInsn.OutputRegs |= conflicting
		if codegendebug.AllocLoggingEnabled || codegendebug.Verbose {
			fmt.Printf("alloc: policy 1 (direct) node %d -> 0x%x\n", n, choice)
		}
		return
	}

	// Policy 2: producer keeps its pick, consumer reloads.
	if current := producerInsn.ProducableRegs &^ (blocked | producerInsn.OutputRegs); !current.Empty() {
		if consumerreg, ok := (node.DesiredReg &^ consumerInsn.InputRegs).Lowest(); ok {
			producerreg, _ := current.Lowest()
			producerInsn.ProducedReg = producerreg
			node.ProducedReg = consumerreg

			consumerInsn.InputRegs |= g.regs.ConflictsWith(consumerreg)
			conflicting := g.regs.ConflictsWith(producerreg)
			g.widenLiveRange(consumerIdx+1, producer-1, conflicting)
			producerInsn.OutputRegs |= conflicting
			consumerInsn.AppendReload(producerreg, consumerreg)
			if codegendebug.AllocLoggingEnabled || codegendebug.Verbose {
				fmt.Printf("alloc: policy 2 (reload) node %d producer 0x%x consumer 0x%x\n", n, producerreg, consumerreg)
			}
			return
		}
	}

	// Policy 3: consumer keeps its pick, producer spills.
	if current := node.DesiredReg &^ (blocked | consumerInsn.InputRegs); !current.Empty() {
		if producerreg, ok := (producerInsn.ProducableRegs &^ producerInsn.OutputRegs).Lowest(); ok {
			consumerreg, _ := current.Lowest()
			producerInsn.ProducedReg = producerreg
			node.ProducedReg = consumerreg

			conflicting := g.regs.ConflictsWith(consumerreg)
			consumerInsn.InputRegs |= conflicting
			g.widenLiveRange(consumerIdx+1, producer-1, conflicting)
			producerInsn.OutputRegs |= g.regs.ConflictsWith(producerreg)
			producerInsn.PrependSpill(producerreg, consumerreg)
			if codegendebug.AllocLoggingEnabled || codegendebug.Verbose {
				fmt.Printf("alloc: policy 3 (spill) node %d producer 0x%x consumer 0x%x\n", n, producerreg, consumerreg)
			}
			return
		}
	}

	// Policy 4: bridge through the stack.
	producerreg, ok := (producerInsn.ProducableRegs &^ producerInsn.OutputRegs).Lowest()
	if !ok {
		g.deadlock(producer, consumerIdx)
	}
	producerInsn.ProducedReg = producerreg
	producerInsn.OutputRegs |= g.regs.ConflictsWith(producerreg)
	producerInsn.PrependSpill(producerreg, 0)

	consumerreg, ok := (node.DesiredReg &^ consumerInsn.InputRegs).Lowest()
	if !ok {
		g.deadlock(producer, consumerIdx)
	}
	node.ProducedReg = consumerreg
	consumerInsn.InputRegs |= g.regs.ConflictsWith(consumerreg)
	consumerInsn.AppendReload(0, consumerreg)
	if codegendebug.AllocLoggingEnabled || codegendebug.Verbose {
		fmt.Printf("alloc: policy 4 (stack bridge) node %d producer 0x%x consumer 0x%x\n", n, producerreg, consumerreg)
	}
}

// blockedRegisters is the union of InputRegs|OutputRegs across
// [start, end] inclusive (calculate_blocked_registers). An empty or inverted
// range (end < start) contributes nothing.
func (g *Generator) blockedRegisters(start, end arena.InstrIndex) reg.Mask {
	var blocked reg.Mask
	for i := start; i <= end; i++ {
		insn := g.insns.At(i)
		blocked |= insn.InputRegs | insn.OutputRegs
	}
	return blocked
}

// widenLiveRange ORs extra into every instruction's InputRegs and
// OutputRegs across [start, end] inclusive (block_registers), reserving a
// newly allocated register across the whole live range it passes through.
func (g *Generator) widenLiveRange(start, end arena.InstrIndex, extra reg.Mask) {
	for i := start; i <= end; i++ {
		insn := g.insns.At(i)
		insn.InputRegs |= extra
		insn.OutputRegs |= extra
	}
}

// backpropagateSameAsResult resolves arena.SameAsResult sentinels on
// producer's children now that producer's register is known, then forbids
// any other child from also demanding that same physical register (spec
// §4.E's two-pass fixup, required to avoid a guaranteed deadlock from two
// operands competing for one register).
func (g *Generator) backpropagateSameAsResult(producer arena.InstrIndex) {
	insn := g.insns.At(producer)
	updated := false
	for _, idx := range insn.N {
		if idx == arena.NoNode {
			continue
		}
		child := g.nodes.At(idx)
		if child.DesiredReg == arena.SameAsResult {
			child.DesiredReg = insn.ProducedReg
			updated = true
		}
	}
	if !updated {
		return
	}
	for _, idx := range insn.N {
		if idx == arena.NoNode {
			continue
		}
		child := g.nodes.At(idx)
		if child.DesiredReg != insn.ProducedReg {
			child.DesiredReg &^= insn.ProducedReg
		}
	}
}

// deadlock raises the comprehensive post-mortem diagnostic spec §7 requires:
// every in-flight instruction's rule id, produced register, input/output
// masks, and the instructions its live children are produced by.
func (g *Generator) deadlock(producer, consumer arena.InstrIndex) {
	ruleID := g.insns.At(producer).RuleID
	var dumps []deadlockDump
	for i := producer; i >= 0; i-- {
		insn := g.insns.At(i)
		d := deadlockDump{
			index:    i,
			ruleID:   insn.RuleID,
			produced: insn.ProducedReg,
			input:    insn.InputRegs,
			output:   insn.OutputRegs,
		}
		for _, idx := range insn.N[1:] {
			if idx == arena.NoNode {
				continue
			}
			n := g.nodes.At(idx)
			if n.ProducedReg != 0 && n.Producer != arena.NoInstr {
				d.consumesIdx = append(d.consumesIdx, n.Producer)
				d.consumesReg = append(d.consumesReg, n.ProducedReg)
			}
		}
		dumps = append(dumps, d)
	}
	panic(deadlockError(ruleID, dumps))
}

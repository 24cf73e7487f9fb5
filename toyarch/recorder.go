package toyarch

import (
	"fmt"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
)

// Recorder implements rule.MoveEmitter and rule.InstructionEmitter by
// appending a human-readable line per call, in emission order. Tests assert
// against Recorder.Lines(); cmd/midgen prints them directly as the demo's
// "assembly" output.
type Recorder struct {
	lines []string
}

// EmitMove implements rule.MoveEmitter.
func (r *Recorder) EmitMove(src, dest reg.Mask) {
	r.lines = append(r.lines, fmt.Sprintf("move %s, %s", regName(src), regName(dest)))
}

// EmitComment implements rule.MoveEmitter.
func (r *Recorder) EmitComment(format string, args ...any) {
	r.lines = append(r.lines, "; "+fmt.Sprintf(format, args...))
}

// EmitInstruction implements rule.InstructionEmitter.
func (r *Recorder) EmitInstruction(ruleID int, insn *arena.Instruction, nodes *arena.Nodes) {
	switch ruleID {
	case 1, 2: // const / load: insn.N[0] is the node carrying the immediate.
		n := nodes.At(insn.N[0])
		op := "const"
		if n.Op == OpLoad {
			op = "load"
		}
		r.lines = append(r.lines, fmt.Sprintf("%s %d -> %s", op, n.Data, regName(insn.ProducedReg)))
	case 3: // negate
		r.lines = append(r.lines, fmt.Sprintf("neg %s -> %s", regName(nodes.At(insn.N[1]).ProducedReg), regName(insn.ProducedReg)))
	case 4: // add
		left, right := nodes.At(insn.N[1]), nodes.At(insn.N[2])
		r.lines = append(r.lines, fmt.Sprintf("add %s, %s -> %s", regName(left.ProducedReg), regName(right.ProducedReg), regName(insn.ProducedReg)))
	case 5: // sink
		r.lines = append(r.lines, fmt.Sprintf("sink %s", regName(nodes.At(insn.N[1]).ProducedReg)))
	default:
		panic(fmt.Sprintf("toyarch: EmitInstruction called with unknown rule id %d", ruleID))
	}
}

// Lines returns the recorded output in emission order.
func (r *Recorder) Lines() []string { return r.lines }

func regName(m reg.Mask) string {
	switch m {
	case 0:
		return "stack"
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	default:
		return fmt.Sprintf("0x%x", uint32(m))
	}
}

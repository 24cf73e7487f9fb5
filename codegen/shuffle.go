package codegen

import (
	"fmt"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/codegen/codegendebug"
	"github.com/rnshah9/midgen/reg"
	"github.com/rnshah9/midgen/rule"
)

// shuffle serializes an unordered parallel-move list into a sequence of
// arch_emit_move calls, per spec §4.F. All moves in the list are understood
// to read their sources simultaneously; the four-rule preference order below
// (pushes, then safe reg-to-reg, then pops, then one cycle-breaking push) is
// what makes that simultaneity safe to realize as a sequential instruction
// stream, including when the moves form a pure register-to-register cycle.
func shuffle(mover rule.MoveEmitter, moves *arena.Regmove) {
	srcs := collectSrcs(moves)

	for {
		if m := firstPush(moves); m != nil {
			emitMove(mover, m.Src, 0)
			srcs &^= m.Src
			m.Src = 0
			continue
		}

		if m := firstSafeMove(moves, srcs); m != nil {
			emitMove(mover, m.Src, m.Dest)
			srcs &^= m.Src
			m.Src, m.Dest = 0, 0
			continue
		}

		if m := firstPop(moves); m != nil {
			emitMove(mover, 0, m.Dest)
			m.Dest = 0
			continue
		}

		if m := firstCycleMember(moves); m != nil {
			emitMove(mover, m.Src, 0)
			srcs &^= m.Src
			m.Src = 0
			continue
		}

		break
	}
}

func emitMove(mover rule.MoveEmitter, src, dest reg.Mask) {
	if codegendebug.ShuffleLoggingEnabled || codegendebug.Verbose {
		fmt.Printf("shuffle: move(0x%x, 0x%x)\n", src, dest)
	}
	mover.EmitMove(src, dest)
}

func collectSrcs(moves *arena.Regmove) reg.Mask {
	var srcs reg.Mask
	for m := moves; m != nil; m = m.Next {
		srcs |= m.Src
	}
	return srcs
}

// firstPush finds an item that is purely a push: a source with no
// destination. Doing these first frees up sources, which can unblock safe
// moves that would otherwise look blocked.
func firstPush(moves *arena.Regmove) *arena.Regmove {
	for m := moves; m != nil; m = m.Next {
		if m.Src != 0 && m.Dest == 0 {
			return m
		}
	}
	return nil
}

// firstSafeMove finds a register-to-register move whose destination is not
// any pending item's source — writing it cannot clobber a value something
// else still needs to read.
func firstSafeMove(moves *arena.Regmove, srcs reg.Mask) *arena.Regmove {
	for m := moves; m != nil; m = m.Next {
		if m.Src != 0 && m.Dest != 0 && !m.Dest.Contains(srcs) {
			return m
		}
	}
	return nil
}

// firstPop finds a pure pop: a destination with no source. Pops run last so
// that every safe register-to-register move that could avoid touching the
// stack gets the chance to.
func firstPop(moves *arena.Regmove) *arena.Regmove {
	for m := moves; m != nil; m = m.Next {
		if m.Src == 0 && m.Dest != 0 {
			return m
		}
	}
	return nil
}

// firstCycleMember finds any item still fully unresolved. Reaching this
// point means every remaining item is a register-to-register move whose
// destination collides with some other item's source, i.e. a cycle;
// breaking it by converting one member into a push lets firstPop resolve
// the rest.
func firstCycleMember(moves *arena.Regmove) *arena.Regmove {
	for m := moves; m != nil; m = m.Next {
		if m.Src != 0 || m.Dest != 0 {
			return m
		}
	}
	return nil
}

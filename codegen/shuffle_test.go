package codegen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
)

type moveLog struct {
	moves [][2]reg.Mask
}

func (l *moveLog) EmitMove(src, dest reg.Mask) {
	l.moves = append(l.moves, [2]reg.Mask{src, dest})
}

func (l *moveLog) EmitComment(format string, args ...any) {}

func (l *moveLog) String() string {
	out := ""
	for _, m := range l.moves {
		out += fmt.Sprintf("move(0x%x,0x%x) ", m[0], m[1])
	}
	return out
}

const (
	regA reg.Mask = 1 << iota
	regB
	regC
)

func TestShuffleSingleMove(t *testing.T) {
	moves := &arena.Regmove{Src: regA, Dest: regB}
	log := &moveLog{}

	shuffle(log, moves)

	require.Equal(t, [][2]reg.Mask{{regA, regB}}, log.moves)
}

func TestShuffleCycle(t *testing.T) {
	// spec scenario 4: {A->B, B->A} resolves through exactly one stack
	// round-trip: push one source, complete the now-safe move, pop the rest.
	ab := &arena.Regmove{Src: regA, Dest: regB}
	ba := &arena.Regmove{Src: regB, Dest: regA}
	ab.Next = ba
	log := &moveLog{}

	shuffle(log, ab)

	require.Equal(t, [][2]reg.Mask{
		{regA, 0},
		{regB, regA},
		{0, regB},
	}, log.moves, "got %s", log)
}

func TestShufflePushesBeforeSafeMoves(t *testing.T) {
	// A pure push (no dest) must be drained before a reg-to-reg move that
	// doesn't even conflict with it, since the push can only help.
	push := &arena.Regmove{Src: regA, Dest: 0}
	move := &arena.Regmove{Src: regB, Dest: regC}
	push.Next = move
	log := &moveLog{}

	shuffle(log, push)

	require.Len(t, log.moves, 2)
	require.Equal(t, [2]reg.Mask{regA, 0}, log.moves[0])
}

func TestShuffleNilList(t *testing.T) {
	log := &moveLog{}
	shuffle(log, nil)
	require.Empty(t, log.moves)
}

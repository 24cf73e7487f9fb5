package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
)

func TestNodesNewAndAt(t *testing.T) {
	nodes := arena.NewNodes(4)
	idx := nodes.New(7, 42, arena.NoNode, arena.NoNode)

	n := nodes.At(idx)
	require.Equal(t, byte(7), n.Op)
	require.Equal(t, int64(42), n.Data)
	require.Equal(t, arena.NoInstr, n.Consumer)
	require.Equal(t, arena.NoInstr, n.Producer)
}

func TestNodesCapacityPanics(t *testing.T) {
	nodes := arena.NewNodes(1)
	nodes.New(1, 0, arena.NoNode, arena.NoNode)

	require.Panics(t, func() { nodes.New(1, 0, arena.NoNode, arena.NoNode) })
}

func TestNodesPushPopIsLIFO(t *testing.T) {
	nodes := arena.NewNodes(4)
	i1 := nodes.New(1, 0, arena.NoNode, arena.NoNode)
	i2 := nodes.New(2, 0, arena.NoNode, arena.NoNode)

	nodes.Push(i1)
	nodes.Push(i2)
	require.True(t, nodes.Pending())

	got, ok := nodes.Pop()
	require.True(t, ok)
	require.Equal(t, i2, got)

	got, ok = nodes.Pop()
	require.True(t, ok)
	require.Equal(t, i1, got)

	require.False(t, nodes.Pending())
	_, ok = nodes.Pop()
	require.False(t, ok)
}

func TestNodesPushCapacityPanicsIndependentlyOfStorage(t *testing.T) {
	// Push shares its capacity bound with New, even though pending-stack
	// depth and total node count are conceptually different things here.
	nodes := arena.NewNodes(1)
	idx := nodes.New(1, 0, arena.NoNode, arena.NoNode)
	nodes.Push(idx)
	require.Panics(t, func() { nodes.Push(idx) })
}

func TestNodesResetPendingKeepsStorage(t *testing.T) {
	nodes := arena.NewNodes(4)
	idx := nodes.New(1, 0, arena.NoNode, arena.NoNode)
	nodes.Push(idx)

	nodes.ResetPending()

	require.False(t, nodes.Pending())
	require.Equal(t, byte(1), nodes.At(idx).Op)
}

func TestNodesResetClearsStorage(t *testing.T) {
	nodes := arena.NewNodes(4)
	nodes.New(1, 0, arena.NoNode, arena.NoNode)
	nodes.Reset()

	idx := nodes.New(2, 0, arena.NoNode, arena.NoNode)
	require.Equal(t, arena.NodeIndex(0), idx)
}

func TestNodesHighWaterMark(t *testing.T) {
	nodes := arena.NewNodes(4)
	i1 := nodes.New(1, 0, arena.NoNode, arena.NoNode)
	i2 := nodes.New(1, 0, arena.NoNode, arena.NoNode)

	nodes.Push(i1)
	nodes.Push(i2)
	nodes.Pop()
	nodes.Pop()
	nodes.Push(i1)

	require.Equal(t, 2, nodes.HighWaterMark())
}

func TestInstructionsAppendAndReset(t *testing.T) {
	insns := arena.NewInstructions(2)
	i0 := insns.Append()
	i1 := insns.Append()
	require.Equal(t, arena.InstrIndex(0), i0)
	require.Equal(t, arena.InstrIndex(1), i1)
	require.Equal(t, 2, insns.Len())
	require.Panics(t, func() { insns.Append() })

	insns.Reset()
	require.Equal(t, 0, insns.Len())
	require.Equal(t, 2, insns.HighWaterMark())
}

func TestInstructionFreshSlotHasNoChildren(t *testing.T) {
	insns := arena.NewInstructions(1)
	idx := insns.Append()
	insn := insns.At(idx)
	for _, n := range insn.N {
		require.Equal(t, arena.NoNode, n)
	}
}

func TestAppendReloadPreservesOrder(t *testing.T) {
	var insn arena.Instruction
	insn.AppendReload(1, 2)
	insn.AppendReload(3, 4)

	require.Equal(t, reg.Mask(1), insn.FirstReload.Src)
	require.Equal(t, reg.Mask(2), insn.FirstReload.Dest)
	require.NotNil(t, insn.FirstReload.Next)
	require.Equal(t, reg.Mask(3), insn.FirstReload.Next.Src)
	require.Nil(t, insn.FirstReload.Next.Next)
}

func TestPrependSpillReversesOrder(t *testing.T) {
	var insn arena.Instruction
	insn.PrependSpill(1, 2)
	insn.PrependSpill(3, 4)

	require.Equal(t, reg.Mask(3), insn.FirstSpill.Src)
	require.Equal(t, reg.Mask(1), insn.FirstSpill.Next.Src)
}

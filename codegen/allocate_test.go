package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/reg"
	"github.com/rnshah9/midgen/rule"
)

// stubOracle satisfies rule.Oracle without expressing any rules; the
// allocator unit tests below drive g.insns/g.nodes directly and never reach
// the matcher or setRuleID, so only Registers (needed by reg.NewFile at
// construction) is ever called; Rules returns an empty table.
type stubOracle struct {
	regs  []reg.Register
	rules rule.Table
}

func (s *stubOracle) Registers() []reg.Register { return s.regs }
func (s *stubOracle) Rules() rule.Table         { return s.rules }
func (s *stubOracle) PopulateMatchBuffer(*arena.Nodes, *arena.Instruction, []arena.NodeIndex, []byte) {
}
func (s *stubOracle) MatchPredicate(int, *arena.Nodes, []arena.NodeIndex) bool { return false }
func (s *stubOracle) RewriteNode(int, *arena.Nodes, []arena.NodeIndex) arena.NodeIndex {
	return arena.NoNode
}

type nopEmitter struct{}

func (nopEmitter) EmitMove(src, dest reg.Mask)        {}
func (nopEmitter) EmitComment(format string, a ...any) {}
func (nopEmitter) EmitInstruction(int, *arena.Instruction, *arena.Nodes) {}

const (
	ra reg.Mask = 1 << iota
	rb
	rc
)

func newTestGenerator() *Generator {
	oracle := &stubOracle{regs: []reg.Register{
		{ID: ra, Uses: ra},
		{ID: rb, Uses: rb},
		{ID: rc, Uses: rc},
	}}
	return New(oracle, nopEmitter{}, nopEmitter{}, NewConfig().WithNodeCapacity(8).WithInstructionCapacity(8))
}

func TestBlockedRegistersUnionsRange(t *testing.T) {
	g := newTestGenerator()
	i0 := g.insns.Append()
	i1 := g.insns.Append()
	i2 := g.insns.Append()
	g.insns.At(i0).OutputRegs = ra
	g.insns.At(i1).InputRegs = rb
	g.insns.At(i2).OutputRegs = rc

	require.Equal(t, ra|rb, g.blockedRegisters(i0, i1))
	require.Equal(t, ra|rb|rc, g.blockedRegisters(i0, i2))
}

func TestBlockedRegistersEmptyOnInvertedRange(t *testing.T) {
	g := newTestGenerator()
	i0 := g.insns.Append()
	g.insns.At(i0).OutputRegs = ra

	require.Equal(t, reg.Mask(0), g.blockedRegisters(i0+1, i0-1))
}

func TestWidenLiveRangeTouchesEveryInstructionInRange(t *testing.T) {
	g := newTestGenerator()
	i0 := g.insns.Append()
	i1 := g.insns.Append()
	i2 := g.insns.Append()

	g.widenLiveRange(i0, i1, rb)

	require.Equal(t, rb, g.insns.At(i0).InputRegs)
	require.Equal(t, rb, g.insns.At(i0).OutputRegs)
	require.Equal(t, rb, g.insns.At(i1).InputRegs)
	require.Equal(t, reg.Mask(0), g.insns.At(i2).InputRegs)
}

func TestAllocateDirectPicksLowestFreeRegister(t *testing.T) {
	g := newTestGenerator()
	consumer := g.insns.Append()
	producer := g.insns.Append()
	g.insns.At(producer).ProducableRegs = ra | rb | rc

	n := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	node := g.nodes.At(n)
	node.DesiredReg = ra | rb | rc
	node.Consumer = consumer

	g.allocate(producer, n)

	require.Equal(t, ra, node.ProducedReg)
	require.Equal(t, ra, g.insns.At(producer).ProducedReg)
	require.Nil(t, g.insns.At(producer).FirstSpill)
	require.Nil(t, g.insns.At(consumer).FirstReload)
}

func TestAllocateNoConsumerIsABug(t *testing.T) {
	g := newTestGenerator()
	producer := g.insns.Append()
	g.insns.At(producer).ProducableRegs = ra

	n := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	g.nodes.At(n).DesiredReg = ra
	g.nodes.At(n).Consumer = arena.NoInstr

	require.Panics(t, func() { g.allocate(producer, n) })
}

func TestConvertCapacityPanicWrapsArenaError(t *testing.T) {
	got := func() (r any) {
		defer func() { r = recover() }()
		defer convertCapacityPanic()
		panic(&arena.CapacityError{What: "ran out of nodes"})
	}()

	fe, ok := got.(*FatalError)
	require.True(t, ok, "expected *FatalError, got %T: %v", got, got)
	require.Equal(t, KindCapacity, fe.Kind)
	require.Equal(t, "ran out of nodes", fe.Error())
}

func TestConvertCapacityPanicLeavesOtherPanicsAlone(t *testing.T) {
	got := func() (r any) {
		defer func() { r = recover() }()
		defer convertCapacityPanic()
		panic("something unrelated")
	}()

	require.Equal(t, "something unrelated", got)
}

// TestAllocateDeadlockWhenProducerHasNoRegisterLeft drives policy 4's first
// Lowest() call to failure (allocate.go:130-133): the rule's
// ProducableRegs is empty, so no earlier policy can succeed either, and the
// producer side of the stack bridge has nothing left to hand out.
func TestAllocateDeadlockWhenProducerHasNoRegisterLeft(t *testing.T) {
	g := newTestGenerator()
	consumer := g.insns.Append()
	producer := g.insns.Append()
	pinsn := g.insns.At(producer)
	pinsn.ProducableRegs = 0
	pinsn.RuleID = 7

	n := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	node := g.nodes.At(n)
	node.DesiredReg = ra | rb | rc
	node.Consumer = consumer

	got := func() (r any) {
		defer func() { r = recover() }()
		g.allocate(producer, n)
		return nil
	}()

	fe, ok := got.(*FatalError)
	require.True(t, ok, "expected *FatalError, got %T: %v", got, got)
	require.Equal(t, KindDeadlock, fe.Kind)
	require.Contains(t, fe.Error(), "ruleid 7")
	require.Contains(t, fe.Error(), "rule 7 contains impossible situation")
}

// TestAllocateDeadlockWhenConsumerHasNoRegisterLeft drives policy 4's second
// Lowest() call to failure (allocate.go:138-141): the producer side succeeds,
// but the only register the node ever wants is already claimed in the
// consumer's InputRegs, so the consumer side of the bridge has nothing left.
func TestAllocateDeadlockWhenConsumerHasNoRegisterLeft(t *testing.T) {
	g := newTestGenerator()
	consumer := g.insns.Append()
	producer := g.insns.Append()
	pinsn := g.insns.At(producer)
	pinsn.ProducableRegs = ra
	pinsn.RuleID = 9
	g.insns.At(consumer).InputRegs = ra

	n := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	node := g.nodes.At(n)
	node.DesiredReg = ra
	node.Consumer = consumer

	got := func() (r any) {
		defer func() { r = recover() }()
		g.allocate(producer, n)
		return nil
	}()

	fe, ok := got.(*FatalError)
	require.True(t, ok, "expected *FatalError, got %T: %v", got, got)
	require.Equal(t, KindDeadlock, fe.Kind)
	require.Contains(t, fe.Error(), "ruleid 9")
	require.Contains(t, fe.Error(), "rule 9 contains impossible situation")
}

func TestBackpropagateSameAsResultResolvesSentinelAndExcludesSiblings(t *testing.T) {
	g := newTestGenerator()
	producer := g.insns.Append()
	insn := g.insns.At(producer)
	insn.ProducedReg = ra

	same := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	g.nodes.At(same).DesiredReg = arena.SameAsResult

	sibling := g.nodes.New(1, 0, arena.NoNode, arena.NoNode)
	g.nodes.At(sibling).DesiredReg = ra | rb

	insn.N[0] = same
	insn.N[1] = sibling

	g.backpropagateSameAsResult(producer)

	require.Equal(t, ra, g.nodes.At(same).DesiredReg)
	require.Equal(t, rb, g.nodes.At(sibling).DesiredReg, "sibling must not also demand the register producer just claimed")
}

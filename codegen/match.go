package codegen

import (
	"fmt"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/codegen/codegendebug"
	"github.com/rnshah9/midgen/rule"
)

// matchAndRewrite finds the first rule matching n, applying rewrite rules
// (and re-matching their output) until a generation rule is found, as
// described by spec §4.C/§4.D. It returns the final (possibly rewritten)
// node together with the matched generation rule's id.
func (g *Generator) matchAndRewrite(producer arena.InstrIndex, n arena.NodeIndex) (arena.NodeIndex, int) {
	var matchbytes [arena.TemplateDepth]byte
	for {
		for i := range g.scratch {
			g.scratch[i] = arena.NoNode
		}
		g.scratch[0] = n
		for i := range matchbytes {
			matchbytes[i] = 0
		}

		insn := g.insns.At(producer)
		g.oracle.PopulateMatchBuffer(g.nodes, insn, g.scratch, matchbytes[:])

		ruleID, matched := g.findRule(n, matchbytes[:])
		if !matched {
			panic(unmatchedError(g.nodes.At(n)))
		}
		r := g.oracle.Rules()[ruleID]

		if r.Flags&rule.HasRewriter == 0 {
			return n, ruleID
		}

		nr := g.oracle.RewriteNode(ruleID, g.nodes, g.scratch)
		old := g.nodes.At(n)
		replacement := g.nodes.At(nr)
		replacement.DesiredReg = old.DesiredReg
		replacement.Consumer = old.Consumer

		if old.Consumer != arena.NoInstr {
			consumerInsn := g.insns.At(old.Consumer)
			for i := range consumerInsn.N {
				if consumerInsn.N[i] == n {
					consumerInsn.N[i] = nr
				}
			}
		}

		if codegendebug.RewriteLoggingEnabled || codegendebug.Verbose {
			fmt.Printf("rewrite: rule %d replaced node %d with node %d\n", ruleID, n, nr)
		}

		n = nr
	}
}

// findRule runs the first-match-wins scan over the rule table, applying the
// generation-rule gating, template comparison, and predicate checks from
// spec §4.C in order, cheapest first.
func (g *Generator) findRule(n arena.NodeIndex, matchbytes []byte) (int, bool) {
	desired := g.nodes.At(n).DesiredReg
	table := g.oracle.Rules()
	for ruleID := range table {
		r := &table[ruleID]
		if r.Flags&rule.HasRewriter == 0 {
			if !r.CompatibleProducableRegs.Empty() {
				if !r.CompatibleProducableRegs.Contains(desired) {
					if codegendebug.MatchLoggingEnabled || codegendebug.Verbose {
						fmt.Printf("match: rule %d rejected, desired 0x%x incompatible with 0x%x\n", ruleID, desired, r.CompatibleProducableRegs)
					}
					continue
				}
			} else if !desired.Empty() {
				if codegendebug.MatchLoggingEnabled || codegendebug.Verbose {
					fmt.Printf("match: rule %d rejected, produces nothing but desired 0x%x\n", ruleID, desired)
				}
				continue
			}
		}

		if !templateMatches(matchbytes, r.MatchBytes[:]) {
			continue
		}

		if r.Flags&rule.HasPredicates != 0 && !g.oracle.MatchPredicate(ruleID, g.nodes, g.scratch) {
			if codegendebug.MatchLoggingEnabled || codegendebug.Verbose {
				fmt.Printf("match: rule %d rejected by predicate\n", ruleID)
			}
			continue
		}

		if codegendebug.MatchLoggingEnabled || codegendebug.Verbose {
			fmt.Printf("match: rule %d matched node %d\n", ruleID, n)
		}
		return ruleID, true
	}
	return 0, false
}

// templateMatches compares data against template position by position: a
// zero template byte is a wildcard, any other byte must equal the data byte
// at that position.
func templateMatches(data, template []byte) bool {
	for i, t := range template {
		if t != 0 && data[i] != t {
			return false
		}
	}
	return true
}

// Command midgen drives the toyarch architecture oracle through the codegen
// core for smoke demonstration: parse a tiny prefix-notation expression,
// generate code for it, and print the resulting instruction/move stream.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rnshah9/midgen/arena"
	"github.com/rnshah9/midgen/codegen"
	"github.com/rnshah9/midgen/codegen/codegendebug"
	"github.com/rnshah9/midgen/toyarch"
)

func main() {
	var numInstructions, numNodes int

	root := &cobra.Command{
		Use:   "midgen",
		Short: "Demonstrates the tree-matching / register-allocation / move-shuffling code generation core against a toy three-register architecture.",
	}

	genCmd := &cobra.Command{
		Use:   "generate [expression]",
		Short: "Parse a prefix-notation expression and print the emitted instruction stream",
		Long: "The expression grammar is: " +
			"expr := NUMBER | \"load\" \"(\" NUMBER \")\" | \"neg\" \"(\" expr \")\" | \"add\" \"(\" expr \",\" expr \")\". " +
			"A bare NUMBER is a constant. The whole expression is implicitly wrapped in a statement sink, matching how a real front end would hand a generate() call a tree whose root already has a consumer.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := codegen.NewConfig().
				WithInstructionCapacity(numInstructions).
				WithNodeCapacity(numNodes)
			arch := toyarch.New(toyarch.All)
			rec := &toyarch.Recorder{}
			gen := codegen.New(arch, rec, rec, cfg)

			p := &parser{input: args[0], nodes: gen.Nodes()}
			root, err := p.parseExpr()
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			p.skipSpace()
			if p.pos != len(p.input) {
				return fmt.Errorf("parse: unexpected trailing input %q", p.input[p.pos:])
			}

			sink := gen.Nodes().New(toyarch.OpSink, 0, root, arena.NoNode)
			gen.Generate(sink)
			gen.Finalise()

			for _, line := range rec.Lines() {
				fmt.Println(line)
			}
			return nil
		},
	}
	genCmd.Flags().IntVar(&numInstructions, "num-instructions", 200, "instruction arena capacity")
	genCmd.Flags().IntVar(&numNodes, "num-nodes", 200, "node arena capacity")

	dumpCmd := &cobra.Command{
		Use:   "dump-rules",
		Short: "Print the toy architecture's rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			arch := toyarch.New(toyarch.All)
			for i, r := range arch.Rules() {
				fmt.Printf("rule %d: match=%v flags=%02b producable=0x%x uses=0x%x\n",
					i, r.MatchBytes, r.Flags, r.ProducableRegs, r.UsesRegs)
			}
			return nil
		},
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable codegendebug tracing to stdout")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			codegendebug.Verbose = true
		}
	}

	root.AddCommand(genCmd, dumpCmd)

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*codegen.FatalError); ok {
				fmt.Fprintf(os.Stderr, "midgen: fatal: %s\n", fe.Error())
				os.Exit(1)
			}
			panic(r)
		}
	}()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parser is a tiny recursive-descent parser for the generate subcommand's
// expression grammar.
type parser struct {
	input string
	pos   int
	nodes *arena.Nodes
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peekWord() string {
	start := p.pos
	for p.pos < len(p.input) && isWordChar(p.input[p.pos]) {
		p.pos++
	}
	w := p.input[start:p.pos]
	p.pos = start
	return w
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-'
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) parseExpr() (arena.NodeIndex, error) {
	p.skipSpace()
	word := p.peekWord()
	switch word {
	case "load":
		p.pos += len(word)
		if err := p.expect('('); err != nil {
			return arena.NoNode, err
		}
		n, err := p.parseNumber()
		if err != nil {
			return arena.NoNode, err
		}
		if err := p.expect(')'); err != nil {
			return arena.NoNode, err
		}
		return p.nodes.New(toyarch.OpLoad, n, arena.NoNode, arena.NoNode), nil

	case "neg":
		p.pos += len(word)
		if err := p.expect('('); err != nil {
			return arena.NoNode, err
		}
		child, err := p.parseExpr()
		if err != nil {
			return arena.NoNode, err
		}
		if err := p.expect(')'); err != nil {
			return arena.NoNode, err
		}
		return p.nodes.New(toyarch.OpNeg, 0, child, arena.NoNode), nil

	case "add":
		p.pos += len(word)
		if err := p.expect('('); err != nil {
			return arena.NoNode, err
		}
		left, err := p.parseExpr()
		if err != nil {
			return arena.NoNode, err
		}
		if err := p.expect(','); err != nil {
			return arena.NoNode, err
		}
		right, err := p.parseExpr()
		if err != nil {
			return arena.NoNode, err
		}
		if err := p.expect(')'); err != nil {
			return arena.NoNode, err
		}
		return p.nodes.New(toyarch.OpAdd, 0, left, right), nil

	default:
		n, err := p.parseNumber()
		if err != nil {
			return arena.NoNode, err
		}
		return p.nodes.New(toyarch.OpConst, n, arena.NoNode, arena.NoNode), nil
	}
}

func (p *parser) parseNumber() (int64, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected a number at offset %d", start)
	}
	return strconv.ParseInt(strings.TrimSpace(p.input[start:p.pos]), 10, 64)
}

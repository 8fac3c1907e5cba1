// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package repl implements a Read-Eval-Print-Loop (REPL) for matching input
// against the rules of a grammar.
//
// The REPL is typically used from the command line, however, it can also be
// used as a library.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/open-peg/pegc/ast"
	pr "github.com/open-peg/pegc/internal/presentation"
	"github.com/open-peg/pegc/output"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/scope"
	"github.com/open-peg/pegc/util"
)

const commandPrefix = ":"

const defaultCacheSize = 16

var outputModes = []string{
	string(peg.OutputRealized),
	string(peg.OutputIntermediate),
	string(peg.OutputPointer),
}

// REPL represents an instance of the interactive shell.
type REPL struct {
	output io.Writer
	parser *peg.Parser
	cache  *peg.Cache
	expr   *peg.Parser

	rule         string
	outputFormat string
	mode         peg.OutputMode
	scope        output.Scope
	partial      bool
	historyPath  string
	initPrompt   string
	banner       string
}

// New returns a new instance of the REPL matching against the first rule of
// the parser's grammar.
func New(parser *peg.Parser, historyPath string, output io.Writer, outputFormat string, banner string) *REPL {
	cache, _ := peg.NewCache(defaultCacheSize)
	return &REPL{
		output:       output,
		parser:       parser,
		cache:        cache,
		rule:         parser.Grammar().Rules[0].Name,
		outputFormat: outputFormat,
		mode:         peg.OutputRealized,
		scope:        scope.Tagged{},
		historyPath:  historyPath,
		initPrompt:   "> ",
		banner:       banner,
	}
}

// WithScope sets the scope objects and computed values are realized in.
func (r *REPL) WithScope(s output.Scope) *REPL {
	r.scope = s
	return r
}

// WithCache sets the cache ad-hoc rules entered with ":expr" are compiled
// through.
func (r *REPL) WithCache(c *peg.Cache) *REPL {
	r.cache = c
	return r
}

// Loop will run until the user enters ":exit", Ctrl+C, Ctrl+D, or an
// unexpected error occurs.
func (r *REPL) Loop(ctx context.Context) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	r.loadHistory(line)

	if len(r.banner) > 0 {
		fmt.Fprintln(r.output, r.banner)
	}

	line.SetCompleter(r.complete)

	for {
		input, err := line.Prompt(r.getPrompt())

		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Fprintln(r.output, "Exiting")
			break
		}

		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			os.Exit(1)
		}

		if err := r.OneShot(ctx, input); err != nil {
			if errors.Is(err, stop{}) {
				line.AppendHistory(input)
				break
			}
			fmt.Fprintln(r.output, "error:", err)
		}

		line.AppendHistory(input)
	}

	r.saveHistory(line)
}

// OneShot evaluates a single line. Lines starting with a colon are commands,
// everything else is input matched against the current rule.
func (r *REPL) OneShot(ctx context.Context, line string) error {
	if cmd := newCommand(line); cmd != nil {
		switch cmd.op {
		case "rule":
			return r.cmdRule(cmd.args)
		case "rules":
			return r.cmdRules()
		case "expr":
			return r.cmdExpr(exprSource(line, cmd.op))
		case "json":
			return r.cmdFormat("json")
		case "pretty":
			return r.cmdFormat("pretty")
		case "output":
			return r.cmdOutput(cmd.args)
		case "partial":
			return r.cmdPartial()
		case "help":
			return r.cmdHelp()
		case "exit":
			return r.cmdExit()
		}
		return &Error{Code: BadArgsErr, Message: fmt.Sprintf("unknown command %v", strings.Fields(line)[0])}
	}
	return r.evalInput(ctx, line)
}

func (r *REPL) evalInput(ctx context.Context, line string) error {
	parser, rule := r.parser, r.rule
	if r.expr != nil {
		parser, rule = r.expr, ast.DefaultRuleName
	}
	res, err := parser.Eval(ctx, rule, []byte(line),
		peg.Output(r.mode),
		peg.ClassScope(r.scope),
		peg.Partial(r.partial))
	if err != nil {
		return err
	}

	out := pr.Output{Matched: res.Failure == nil, Result: res.Value}
	if res.Failure != nil {
		out.Errors = pr.NewOutputErrors(res.Failure)
	}
	return r.print(out)
}

func (r *REPL) print(out pr.Output) error {
	switch r.outputFormat {
	case "json":
		return pr.JSON(r.output, out)
	default:
		return pr.Pretty(r.output, out)
	}
}

func (r *REPL) complete(line string) (c []string) {
	if prefix := commandPrefix + "output "; strings.HasPrefix(line, prefix) {
		mode := util.NewEnumFlag(string(r.mode), outputModes)
		for _, m := range mode.Values(line[len(prefix):]) {
			c = append(c, prefix+m)
		}
		return c
	}
	prefix := commandPrefix + "rule "
	if strings.HasPrefix(line, prefix) {
		for _, rule := range r.parser.Grammar().Rules {
			if len(rule.Params) == 0 && strings.HasPrefix(rule.Name, line[len(prefix):]) {
				c = append(c, prefix+rule.Name)
			}
		}
		return c
	}
	if strings.HasPrefix(line, commandPrefix) {
		for _, cmd := range builtin {
			if s := commandPrefix + cmd.name; strings.HasPrefix(s, line) {
				c = append(c, s)
			}
		}
	}
	return c
}

func (r *REPL) cmdRule(args []string) error {
	if len(args) != 1 {
		return &Error{Code: BadArgsErr, Message: "rule <name>: expects exactly one rule"}
	}
	rule := r.parser.Rule(args[0])
	if rule == nil {
		return &Error{Code: UnknownRuleErr, Message: args[0]}
	}
	if len(rule.Params) > 0 {
		return &Error{Code: BadArgsErr, Message: fmt.Sprintf("rule %v takes arguments", args[0])}
	}
	r.rule = rule.Name
	r.expr = nil
	return nil
}

func (r *REPL) cmdExpr(src string) error {
	if src == "" {
		return &Error{Code: BadArgsErr, Message: "expr <expression>: expects a rule body"}
	}
	p, err := r.cache.CompileRule(src)
	if err != nil {
		return err
	}
	r.expr = p
	return nil
}

// exprSource returns the text following the command name. The rule body is
// not split into fields so that whitespace inside literals is kept.
func exprSource(line, op string) string {
	rest := strings.TrimLeft(strings.TrimPrefix(line, commandPrefix), " \t")
	return strings.TrimSpace(rest[len(op):])
}

func (r *REPL) cmdRules() error {
	infos := pr.NewRuleInfos(r.parser.Grammar(), r.parser.Types())
	if r.outputFormat == "json" {
		return pr.JSON(r.output, infos)
	}
	return pr.Rules(r.output, infos, 0)
}

func (r *REPL) cmdFormat(s string) error {
	r.outputFormat = s
	return nil
}

func (r *REPL) cmdOutput(args []string) error {
	if len(args) != 1 {
		return &Error{Code: BadArgsErr, Message: "output <mode>: expects exactly one mode"}
	}
	mode := util.NewEnumFlag(string(r.mode), outputModes)
	if err := mode.Set(args[0]); err != nil {
		return &Error{Code: BadArgsErr, Message: fmt.Sprintf("output %v: %v", args[0], err)}
	}
	r.mode = peg.OutputMode(mode.String())
	return nil
}

func (r *REPL) cmdPartial() error {
	r.partial = !r.partial
	return nil
}

func (r *REPL) cmdHelp() error {
	fmt.Fprintln(r.output, "")
	printHelpCommands(r.output)
	return nil
}

func (r *REPL) cmdExit() error {
	return stop{}
}

func (r *REPL) getPrompt() string {
	if r.expr != nil {
		return ast.DefaultRuleName + r.initPrompt
	}
	return r.rule + r.initPrompt
}

func (r *REPL) loadHistory(prompt *liner.State) {
	if f, err := os.Open(r.historyPath); err == nil {
		_, _ = prompt.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(prompt *liner.State) {
	if f, err := os.Create(r.historyPath); err == nil {
		_, _ = prompt.WriteHistory(f)
		f.Close()
	}
}

type commandDesc struct {
	name string
	args []string
	help string
}

func (c commandDesc) syntax() string {
	name := c.name
	if !strings.HasPrefix(name, "<") {
		name = commandPrefix + name
	}
	if len(c.args) > 0 {
		return fmt.Sprintf("%v %v", name, strings.Join(c.args, " "))
	}
	return name
}

var extra = [...]commandDesc{
	{"<input>", []string{}, "match the input against the current rule"},
}

var builtin = [...]commandDesc{
	{"rule", []string{"<name>"}, "set the rule to match"},
	{"rules", []string{}, "list the rules of the grammar"},
	{"expr", []string{"<expression>"}, "match against an ad-hoc rule until the next :rule"},
	{"json", []string{}, "set output format to JSON"},
	{"pretty", []string{}, "set output format to pretty"},
	{"output", []string{"<mode>"}, "set the form of matched values (realized, intermediate, pointer)"},
	{"partial", []string{}, "toggle accepting matches that leave input unconsumed"},
	{"help", []string{}, "print this message"},
	{"exit", []string{}, "exit back to shell (or ctrl+c, ctrl+d)"},
}

type command struct {
	op   string
	args []string
}

func newCommand(line string) *command {
	if !strings.HasPrefix(line, commandPrefix) {
		return nil
	}
	p := strings.Fields(strings.TrimPrefix(line, commandPrefix))
	if len(p) == 0 {
		return nil
	}
	op := strings.ToLower(p[0])
	for _, c := range builtin {
		if c.name == op {
			return &command{
				op:   c.name,
				args: p[1:],
			}
		}
	}
	return &command{op: op, args: p[1:]}
}

func printHelpCommands(output io.Writer) {
	fmt.Fprintln(output, "Commands")
	fmt.Fprintln(output, "========")
	fmt.Fprintln(output, "")

	all := extra[:]
	all = append(all, builtin[:]...)

	maxLength := 0
	for _, c := range all {
		if length := len(c.syntax()); length > maxLength {
			maxLength = length
		}
	}

	f := fmt.Sprintf("%%%dv : %%v\n", maxLength)

	for _, c := range all {
		fmt.Fprintf(output, f, c.syntax(), c.help)
	}

	fmt.Fprintln(output, "")
}

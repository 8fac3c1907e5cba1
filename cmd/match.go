// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-peg/pegc/cmd/internal/env"
	"github.com/open-peg/pegc/config"
	pr "github.com/open-peg/pegc/internal/presentation"
	"github.com/open-peg/pegc/output"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/scope"
	"github.com/open-peg/pegc/util"
)

type matchParams struct {
	commonParams
	rule             string
	input            string
	inputFile        string
	format           *util.EnumFlag
	output           *util.EnumFlag
	scope            *util.EnumFlag
	noRaise          bool
	partial          bool
	trackAllocations bool
	stats            bool
	prettyLimit      int
}

func newMatchParams() matchParams {
	return matchParams{
		commonParams: newCommonParams(),
		format:       newFormatFlag(),
		output:       newOutputFlag(),
		scope:        newScopeFlag(),
	}
}

// readInput returns the input to match: the --input flag, the contents of
// --input-file or everything on stdin, in that order.
func (p *matchParams) readInput(stdin io.Reader) ([]byte, error) {
	switch {
	case p.input != "" && p.inputFile != "":
		return nil, errors.New("specify at most one of --input and --input-file")
	case p.input != "":
		return []byte(p.input), nil
	case p.inputFile != "":
		return os.ReadFile(p.inputFile)
	}
	return io.ReadAll(stdin)
}

func (p *matchParams) matchOptions(cfg *config.Config) []peg.MatchOption {
	mode := cfg.Output
	if p.output.IsSet() {
		mode = p.output.String()
	}

	var s output.Scope = scope.Tagged{}
	if p.scope.String() == scopeRego {
		s = scope.NewRego()
	}

	return []peg.MatchOption{
		peg.Output(peg.OutputMode(mode)),
		peg.ClassScope(s),
		peg.TrackAllocations(p.trackAllocations || cfg.TrackAllocations),
		peg.Partial(p.partial),
	}
}

// match compiles the grammar, matches the input against the rule and writes
// the result to w. A failed match is reported as an error unless raising is
// disabled.
func match(ctx context.Context, params matchParams, args []string, stdin io.Reader, w, stderr io.Writer) error {
	parser, cfg, m, err := params.compileFile(args[0], stderr)
	if err != nil {
		return err
	}

	input, err := params.readInput(stdin)
	if err != nil {
		return err
	}

	rule := params.rule
	if rule == "" {
		rule = parser.Grammar().Rules[0].Name
	}

	res, err := parser.Eval(ctx, rule, input, params.matchOptions(cfg)...)
	if err != nil {
		return err
	}

	out := pr.Output{Matched: res.Failure == nil, Result: res.Value}.WithLimit(params.prettyLimit)
	if params.metrics {
		out.Metrics = m
	}
	if params.stats {
		s, err := parser.Stats()
		if err != nil {
			return err
		}
		s.Allocations = res.Allocations
		out.Stats = &s
	}

	var failed error
	if res.Failure != nil && cfg.Raise() && !params.noRaise {
		out.Errors = pr.NewOutputErrors(res.Failure)
		failed = newExitErrorWrap(1, res.Failure)
	}

	switch params.format.String() {
	case formatJSON:
		err = pr.JSON(w, out)
	default:
		err = pr.Pretty(w, out)
	}
	if err != nil {
		return err
	}
	return failed
}

func init() {
	params := newMatchParams()

	matchCommand := &cobra.Command{
		Use:   "match <grammar> [flags]",
		Short: "Match input against a grammar",
		Long: `Match input against a rule of a grammar.

The input is read from --input, --input-file or stdin. By default the first
rule of the grammar is matched and the whole input must be consumed. The
matched value is printed as JSON. If the input does not match, the furthest
failure position and what was expected there are printed and the command
exits with a non-zero exit code.

Example:

	$ pegc match calc.peg --input '1-2-3'
	$ echo -n 'SELECT x' | pegc match sql.peg -r statement --format json`,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("specify exactly one grammar file")
			}
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := match(cmd.Context(), params, args, os.Stdin, os.Stdout, os.Stderr)
			var exit *ExitError
			if err != nil && !errors.As(err, &exit) {
				outputErrors(os.Stderr, params.format.String(), err)
				return newExitErrorWrap(1, err)
			}
			return err
		},
	}

	fs := matchCommand.Flags()
	addCommonFlags(fs, &params.commonParams)
	addRuleFlag(fs, &params.rule)
	addFormatFlag(fs, params.format)
	addOutputFlag(fs, params.output)
	addScopeFlag(fs, params.scope)
	fs.StringVarP(&params.input, "input", "i", "", "set input to match")
	fs.StringVarP(&params.inputFile, "input-file", "I", "", "set path of a file holding the input to match")
	fs.BoolVar(&params.noRaise, "no-raise", false, "report a failed match as no match instead of an error")
	fs.BoolVar(&params.partial, "partial", false, "accept a match that does not consume the whole input")
	fs.BoolVar(&params.trackAllocations, "track-allocations", false, "report the peak sizes of the matcher's state")
	fs.BoolVar(&params.stats, "stats", false, "report statistics of the built routines")
	fs.IntVar(&params.prettyLimit, "pretty-limit", 80, "set limit after which pretty output gets truncated")

	RootCommand.AddCommand(matchCommand)
}

func outputErrors(out io.Writer, format string, err error) {
	switch format {
	case formatJSON:
		result := pr.Output{
			Errors: pr.NewOutputErrors(err),
		}
		if err := pr.JSON(out, result); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	default:
		fmt.Fprintln(out, err)
	}
}

// Copyright 2022 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/cmd/internal/env"
	pr "github.com/open-peg/pegc/internal/presentation"
	"github.com/open-peg/pegc/ir"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/util"
)

type inspectParams struct {
	commonParams
	format      *util.EnumFlag
	roots       []string
	showIR      bool
	prettyLimit int
}

func newInspectParams() inspectParams {
	return inspectParams{
		commonParams: newCommonParams(),
		format:       newFormatFlag(),
	}
}

type inspectResult struct {
	Rules []pr.RuleInfo `json:"rules"`
	Roots []string      `json:"roots"`
	Stats *peg.Stats    `json:"stats,omitempty"`
}

func inspect(params inspectParams, args []string, w, stderr io.Writer) error {
	parser, _, _, err := params.compileFile(args[0], stderr)
	if err != nil {
		return err
	}

	if len(params.roots) > 0 {
		roots, err := expandRoots(parser.Grammar(), params.roots)
		if err != nil {
			return err
		}
		if err := parser.Build(roots...); err != nil {
			return err
		}
	}

	stats, err := parser.Stats()
	if err != nil {
		return err
	}

	res := inspectResult{
		Rules: pr.NewRuleInfos(parser.Grammar(), parser.Types()),
		Roots: parser.Roots(),
		Stats: &stats,
	}

	if params.format.String() == formatJSON {
		return pr.JSON(w, res)
	}

	if err := pr.Rules(w, res.Rules, params.prettyLimit); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Roots: %v\n", res.Roots)
	if err := pr.Stats(w, stats); err != nil {
		return err
	}

	if params.showIR {
		prog, err := parser.Program()
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		return ir.Pretty(w, prog)
	}
	return nil
}

// expandRoots replaces root patterns such as "expr_*" by the names of the
// rules without parameters they match. Plain names are kept as they are.
func expandRoots(g *ast.Grammar, patterns []string) ([]string, error) {
	var roots []string
	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[{") {
			if !slices.Contains(roots, pat) {
				roots = append(roots, pat)
			}
			continue
		}

		gl, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid root pattern %q: %w", pat, err)
		}

		found := false
		for _, r := range g.Rules {
			if len(r.Params) > 0 || !gl.Match(r.Name) {
				continue
			}
			found = true
			if !slices.Contains(roots, r.Name) {
				roots = append(roots, r.Name)
			}
		}
		if !found {
			return nil, fmt.Errorf("root pattern %q matches no rule", pat)
		}
	}
	return roots, nil
}

func init() {
	params := newInspectParams()

	inspectCommand := &cobra.Command{
		Use:   "inspect <grammar> [flags]",
		Short: "Inspect a grammar",
		Long: `Inspect a grammar.

Prints the rules of the grammar with their parameters and the type of the
value they produce, followed by statistics of the routines built for the root
rules. With --ir the planned routines are printed as well.`,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("specify exactly one grammar file")
			}
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			if err := inspect(params, args, os.Stdout, os.Stderr); err != nil {
				outputErrors(os.Stderr, params.format.String(), err)
				return newExitErrorWrap(1, err)
			}
			return nil
		},
	}

	fs := inspectCommand.Flags()
	addCommonFlags(fs, &params.commonParams)
	addFormatFlag(fs, params.format)
	fs.StringSliceVarP(&params.roots, "root", "r", nil, "set the root rules to build routines for, glob patterns are expanded")
	fs.BoolVar(&params.showIR, "ir", false, "print the planned routines")
	fs.IntVar(&params.prettyLimit, "pretty-limit", 80, "set limit after which value types get truncated")

	RootCommand.AddCommand(inspectCommand)
}

// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/open-peg/pegc/cmd/internal/env"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/repl"
	"github.com/open-peg/pegc/scope"
	"github.com/open-peg/pegc/util"
	"github.com/open-peg/pegc/version"
)

type replParams struct {
	commonParams
	format      *util.EnumFlag
	scope       *util.EnumFlag
	rule        string
	historyPath string
}

func newReplParams() replParams {
	return replParams{
		commonParams: newCommonParams(),
		format:       newFormatFlag(),
		scope:        newScopeFlag(),
	}
}

func init() {
	params := newReplParams()

	replCommand := &cobra.Command{
		Use:   "repl <grammar> [flags]",
		Short: "Start an interactive shell",
		Long: `Start an interactive shell for matching input against a grammar.

Every line entered is matched against the current rule and the result is
printed. Lines starting with a colon are commands: enter ':help' to list them.`,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("specify exactly one grammar file")
			}
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, cfg, _, err := params.compileFile(args[0], os.Stderr)
			if err != nil {
				outputErrors(os.Stderr, params.format.String(), err)
				return newExitErrorWrap(1, err)
			}

			cache, err := peg.NewCache(cfg.Cache.Size, peg.Optimize(cfg.Optimize))
			if err != nil {
				return newExitErrorWrap(1, err)
			}

			banner := fmt.Sprintf("pegc %v (%v). Run ':help' to see a list of commands.", version.Version, version.GoVersion)
			r := repl.New(parser, params.historyPath, os.Stdout, params.format.String(), banner).
				WithCache(cache)
			if params.scope.String() == scopeRego {
				r.WithScope(scope.NewRego())
			}
			if params.rule != "" {
				if err := r.OneShot(cmd.Context(), ":rule "+params.rule); err != nil {
					fmt.Fprintln(os.Stderr, err)
					return newExitErrorWrap(1, err)
				}
			}
			r.Loop(cmd.Context())
			return nil
		},
	}

	fs := replCommand.Flags()
	addCommonFlags(fs, &params.commonParams)
	addFormatFlag(fs, params.format)
	addScopeFlag(fs, params.scope)
	addRuleFlag(fs, &params.rule)
	fs.StringVarP(&params.historyPath, "history", "H", historyPath(), "set path of history file")

	RootCommand.AddCommand(replCommand)
}

func historyPath() string {
	home := os.Getenv("HOME")
	if len(home) == 0 {
		return ".pegc_history"
	}
	return path.Join(home, ".pegc_history")
}

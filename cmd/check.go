// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/cmd/internal/env"
	"github.com/open-peg/pegc/internal/pathwatcher"
	"github.com/open-peg/pegc/util"
)

type checkParams struct {
	commonParams
	format   *util.EnumFlag
	errLimit int
	watch    bool
}

func newCheckParams() checkParams {
	return checkParams{
		commonParams: newCommonParams(),
		format:       newFormatFlag(),
	}
}

// checkGrammars compiles every grammar and builds routines for all of its
// rules that can be matched directly. Errors of all grammars are collected.
func checkGrammars(params checkParams, args []string, stderr io.Writer) error {
	var errs ast.Errors
	for _, path := range args {
		parser, _, _, err := params.compileFile(path, stderr)
		if err != nil {
			var astErrs ast.Errors
			var astErr *ast.Error
			switch {
			case errors.As(err, &astErrs):
				errs = append(errs, astErrs...)
			case errors.As(err, &astErr):
				errs = append(errs, astErr)
			default:
				return fmt.Errorf("%v: %w", path, err)
			}
		} else {
			var roots []string
			for _, r := range parser.Grammar().Rules {
				if len(r.Params) == 0 {
					roots = append(roots, r.Name)
				}
			}
			if len(roots) > 0 {
				if err := parser.Build(roots...); err != nil {
					return fmt.Errorf("%v: %w", path, err)
				}
			}
		}
		if params.errLimit > 0 && len(errs) >= params.errLimit {
			errs = errs[:params.errLimit]
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// watchGrammars checks the grammars again every time one of them changes
// until the context is done.
func watchGrammars(ctx context.Context, params checkParams, args []string, stdout, stderr io.Writer) error {
	watcher, err := pathwatcher.CreatePathWatcher(args)
	if err != nil {
		return fmt.Errorf("creating path watcher: %w", err)
	}
	defer watcher.Close()

	for {
		fmt.Fprintln(stdout, "Watching for changes ...")
		evt, err := pathwatcher.Wait(ctx, watcher, args)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		fmt.Fprintf(stdout, "%v changed\n", evt.Name)
		if err := checkGrammars(params, args, stderr); err != nil {
			outputErrors(stderr, params.format.String(), err)
		} else {
			fmt.Fprintln(stdout, "No errors")
		}
	}
}

func init() {
	checkParams := newCheckParams()

	checkCommand := &cobra.Command{
		Use:   "check <path> [path [...]]",
		Short: "Check grammar files",
		Long: `Check grammar files for parse, reference and type errors.

If the 'check' command succeeds in compiling the grammar(s), no output is
produced. If compiling fails, 'check' will output the errors and exit with a
non-zero exit code.`,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("specify at least one file")
			}
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := checkGrammars(checkParams, args, os.Stderr)
			if err != nil {
				outputErrors(os.Stderr, checkParams.format.String(), err)
			}
			if !checkParams.watch {
				if err != nil {
					return newExitErrorWrap(1, err)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := watchGrammars(ctx, checkParams, args, os.Stdout, os.Stderr); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return newExitErrorWrap(1, err)
			}
			return nil
		},
	}

	addCommonFlags(checkCommand.Flags(), &checkParams.commonParams)
	checkCommand.Flags().IntVarP(&checkParams.errLimit, "max-errors", "m", 10, "set the number of errors to report, 0 reports all")
	addFormatFlag(checkCommand.Flags(), checkParams.format)
	checkCommand.Flags().BoolVarP(&checkParams.watch, "watch", "w", false, "check the files again when they change")
	RootCommand.AddCommand(checkCommand)
}

// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/spf13/pflag"

	"github.com/open-peg/pegc/config"
	"github.com/open-peg/pegc/internal/logging"
	"github.com/open-peg/pegc/util"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

const (
	scopeTagged = "tagged"
	scopeRego   = "rego"
)

func newFormatFlag() *util.EnumFlag {
	return util.NewEnumFlag(formatPretty, []string{formatPretty, formatJSON})
}

func addFormatFlag(fs *pflag.FlagSet, format *util.EnumFlag) {
	fs.VarP(format, "format", "f", "set output format")
}

func addConfigFileFlag(fs *pflag.FlagSet, file *string) {
	fs.StringVarP(file, "config-file", "c", "", "set path of configuration file")
}

func newLogLevelFlag() *util.EnumFlag {
	return util.NewEnumFlag("info", []string{"debug", "info", "warn", "error"})
}

func addLogLevelFlag(fs *pflag.FlagSet, level *util.EnumFlag) {
	fs.VarP(level, "log-level", "l", "set log level")
}

func newLogFormatFlag() *util.EnumFlag {
	return util.NewEnumFlag(logging.FormatText, []string{logging.FormatText, logging.FormatJSON, logging.FormatJSONPretty})
}

func addLogFormatFlag(fs *pflag.FlagSet, format *util.EnumFlag) {
	fs.Var(format, "log-format", "set log format")
}

func addOptimizeFlag(fs *pflag.FlagSet, optimize *bool) {
	fs.BoolVarP(optimize, "optimize", "O", false, "optimize the planned routines before assembling them")
}

func addMetricsFlag(fs *pflag.FlagSet, metrics *bool) {
	fs.BoolVar(metrics, "metrics", false, "report compile and match metrics")
}

func addRuleFlag(fs *pflag.FlagSet, rule *string) {
	fs.StringVarP(rule, "rule", "r", "", "set the rule to match (default: first rule of the grammar)")
}

func newOutputFlag() *util.EnumFlag {
	return util.NewEnumFlag(config.OutputRealized, config.Outputs)
}

func addOutputFlag(fs *pflag.FlagSet, output *util.EnumFlag) {
	fs.VarP(output, "output", "o", "set the form of matched values")
}

func newScopeFlag() *util.EnumFlag {
	return util.NewEnumFlag(scopeTagged, []string{scopeTagged, scopeRego})
}

func addScopeFlag(fs *pflag.FlagSet, scope *util.EnumFlag) {
	fs.Var(scope, "scope", "set how objects and computed values are realized")
}

// Copyright 2022 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package env maps environment variables onto command line flags.
package env

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const globalPrefix = "pegc"

type cmdFlags interface {
	CheckEnvironmentVariables(command *cobra.Command) error
}

type cmdFlagsImpl struct{}

// CmdFlags sets the flags of a command that were not given on the command line
// from PEGC_<COMMAND>_<FLAG> environment variables.
var CmdFlags cmdFlags = cmdFlagsImpl{}

// VarName returns the environment variable read for the flag of the command,
// e.g., PEGC_MATCH_INPUT_FILE for --input-file of "pegc match".
func VarName(command *cobra.Command, flag string) string {
	return strings.ToUpper(prefix(command) + "_" + key(flag))
}

func prefix(command *cobra.Command) string {
	if command.Name() == globalPrefix || !command.HasParent() {
		return globalPrefix
	}
	return globalPrefix + "_" + command.Name()
}

func key(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func (cmdFlagsImpl) CheckEnvironmentVariables(command *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(prefix(command))
	v.AutomaticEnv()

	var errs []string
	command.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(key(f.Name)) {
			return
		}
		val := fmt.Sprint(v.Get(key(f.Name)))
		if err := command.Flags().Set(f.Name, val); err != nil {
			errs = append(errs, fmt.Sprintf("%v: %v", VarName(command, f.Name), err))
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
}

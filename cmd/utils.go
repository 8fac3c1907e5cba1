// Copyright 2025 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/open-peg/pegc/config"
	internal_logging "github.com/open-peg/pegc/internal/logging"
	"github.com/open-peg/pegc/logging"
	"github.com/open-peg/pegc/metrics"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/util"
)

type ExitError struct {
	Exit    int
	wrapped error
}

func newExitError(exit int) error {
	return &ExitError{Exit: exit}
}

func newExitErrorWrap(exit int, err error) error {
	return &ExitError{Exit: exit, wrapped: err}
}

func (c *ExitError) Error() string {
	return fmt.Sprintf("exit %d", c.Exit)
}

func (c *ExitError) Unwrap() error {
	return c.wrapped
}

// commonParams are the flags shared by every command that compiles a grammar.
type commonParams struct {
	configFile string
	logLevel   *util.EnumFlag
	logFormat  *util.EnumFlag
	optimize   bool
	metrics    bool
}

func newCommonParams() commonParams {
	return commonParams{
		logLevel:  newLogLevelFlag(),
		logFormat: newLogFormatFlag(),
	}
}

func addCommonFlags(fs *pflag.FlagSet, p *commonParams) {
	addConfigFileFlag(fs, &p.configFile)
	addLogLevelFlag(fs, p.logLevel)
	addLogFormatFlag(fs, p.logFormat)
	addOptimizeFlag(fs, &p.optimize)
	addMetricsFlag(fs, &p.metrics)
}

// loadConfig reads the configuration file, if any. Flags that were set on the
// command line take precedence over the file.
func (p *commonParams) loadConfig() (*config.Config, error) {
	var raw []byte
	if p.configFile != "" {
		bs, err := os.ReadFile(p.configFile)
		if err != nil {
			return nil, err
		}
		raw = bs
	}

	cfg, err := config.ParseConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config file %v: %w", p.configFile, err)
	}

	if p.optimize {
		cfg.Optimize = true
	}
	if p.logLevel.IsSet() || cfg.Log.Level == "" {
		cfg.Log.Level = p.logLevel.String()
	}
	if p.logFormat.IsSet() || cfg.Log.Format == "" {
		cfg.Log.Format = p.logFormat.String()
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (logging.Logger, error) {
	level, err := internal_logging.GetLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(internal_logging.GetFormatter(cfg.Log.Format, ""))
	return logger, nil
}

// compileFile compiles the grammar at path. If the configuration names roots,
// the routines for them are built immediately.
func (p *commonParams) compileFile(path string, stderr io.Writer) (*peg.Parser, *config.Config, metrics.Metrics, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	m := metrics.NoOp()
	if p.metrics {
		m = metrics.New()
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}

	parser, err := peg.CompileGrammar(string(bs),
		peg.Filename(path),
		peg.Logger(logger),
		peg.Metrics(m),
		peg.Optimize(cfg.Optimize))
	if err != nil {
		return nil, nil, nil, err
	}

	if len(cfg.Roots) > 0 {
		roots, err := expandRoots(parser.Grammar(), cfg.Roots)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := parser.Build(roots...); err != nil {
			return nil, nil, nil, err
		}
	}

	return parser, cfg, m, nil
}

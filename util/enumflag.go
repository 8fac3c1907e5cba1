// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"slices"
	"strings"
)

// EnumFlag implements the pflag.Value interface for parameters that take one
// of a fixed set of values, e.g., an output mode or a log level.
type EnumFlag struct {
	value  string
	values []string
	set    bool
}

// NewEnumFlag returns a new EnumFlag holding defaultValue until it is set to
// one of values.
func NewEnumFlag(defaultValue string, values []string) *EnumFlag {
	return &EnumFlag{
		value:  defaultValue,
		values: values,
	}
}

// Type returns the valid enumeration values.
func (f *EnumFlag) Type() string {
	return "{" + strings.Join(f.values, ",") + "}"
}

// String returns the current value.
func (f *EnumFlag) String() string {
	return f.value
}

// IsSet returns true if the flag has been set explicitly.
func (f *EnumFlag) IsSet() bool {
	return f.set
}

// Values returns the accepted values that start with prefix.
func (f *EnumFlag) Values(prefix string) []string {
	var vs []string
	for _, v := range f.values {
		if strings.HasPrefix(v, prefix) {
			vs = append(vs, v)
		}
	}
	return vs
}

// Set sets the value. If s is not one of the accepted values, an error is
// returned and the value is unchanged.
func (f *EnumFlag) Set(s string) error {
	if !slices.Contains(f.values, s) {
		return fmt.Errorf("must be one of %v", f.Type())
	}
	f.value = s
	f.set = true
	return nil
}

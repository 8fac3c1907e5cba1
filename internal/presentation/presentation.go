// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package presentation prints results of matches and grammar inspections to
// the terminal.
package presentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/metrics"
	"github.com/open-peg/pegc/peg"
	"github.com/open-peg/pegc/types"
)

// Output contains the result of a match to be presented.
type Output struct {
	Errors  OutputErrors    `json:"errors,omitempty"`
	Result  any             `json:"result,omitempty"`
	Matched bool            `json:"matched"`
	Metrics metrics.Metrics `json:"metrics,omitempty"`
	Stats   *peg.Stats      `json:"stats,omitempty"`
	limit   int
}

// WithLimit sets the output limit to set on stringified values.
func (e Output) WithLimit(n int) Output {
	e.limit = n
	return e
}

// NewOutputErrors creates a new slice of OutputError's based on the type of
// error passed in. Known structured types will be translated as appropriate,
// while unknown errors are placed into a structured format with their string
// value.
func NewOutputErrors(err error) []OutputError {
	if err == nil {
		return nil
	}

	var pe *peg.ParsingError
	if errors.As(err, &pe) {
		return []OutputError{{
			Code:    "match_error",
			Message: strings.Join(pe.Reasons(), " / "),
			Location: &FailureLocation{
				Row:    pe.Line(),
				Col:    pe.Column(),
				Offset: pe.Position,
			},
			Details: pe,
			err:     pe,
		}}
	}

	switch typedErr := err.(type) {
	case *ast.Error:
		oe := OutputError{
			Code:    typedErr.Code.String(),
			Message: typedErr.Message,
			err:     typedErr,
		}
		if typedErr.Location != nil {
			oe.Location = typedErr.Location
		}
		if len(typedErr.Details) > 0 {
			oe.Details = strings.Join(typedErr.Details, "\n")
		}
		return []OutputError{oe}

	case ast.Errors:
		var errs []OutputError
		for _, e := range typedErr {
			if e != nil {
				errs = append(errs, NewOutputErrors(e)...)
			}
		}
		return errs
	}

	return []OutputError{{
		Message: err.Error(),
		err:     err,
	}}
}

// FailureLocation is the position of a failed match in the input.
type FailureLocation struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Offset int `json:"offset"`
}

// OutputErrors is a list of errors encountered which are to presented.
type OutputErrors []OutputError

func (e OutputErrors) Error() string {
	if len(e) == 0 {
		return "no error(s)"
	}

	var prefix string
	if len(e) == 1 {
		prefix = "1 error occurred: "
	} else {
		prefix = fmt.Sprintf("%d errors occurred:\n", len(e))
	}

	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
		if l, ok := err.Details.(string); ok {
			s = append(s, l)
		}
	}

	return prefix + strings.Join(s, "\n")
}

// OutputError provides a common structure for all errors so that the JSON
// output given by the presentation package is consistent and parsable.
type OutputError struct {
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Location any    `json:"location,omitempty"`
	Details  any    `json:"details,omitempty"`
	err      error
}

func (j OutputError) Error() string {
	if j.err == nil {
		return j.Message
	}
	return j.err.Error()
}

// JSON writes x to w with indentation.
func JSON(w io.Writer, x any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(x)
}

// Pretty prints all of r to w in a human-readable format.
func Pretty(w io.Writer, r Output) error {
	if r.Errors != nil {
		if err := prettyError(w, r.Errors); err != nil {
			return err
		}
	} else if r.Matched {
		if err := JSON(w, r.Result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "no match")
	}
	if r.Stats != nil {
		fmt.Fprintln(w, r.Stats.String())
	}
	if r.Metrics != nil {
		if err := prettyMetrics(w, r.Metrics, r.limit); err != nil {
			return err
		}
	}
	return nil
}

func prettyError(w io.Writer, errs OutputErrors) error {
	msg := errs.Error()
	if len(errs) == 1 {
		msg = errs[0].Error()
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// RuleInfo describes a rule of a grammar.
type RuleInfo struct {
	Name     string   `json:"name"`
	Params   []string `json:"params,omitempty"`
	Location string   `json:"location,omitempty"`
	Type     string   `json:"type"`
}

// NewRuleInfos describes the rules of the grammar in definition order.
func NewRuleInfos(g *ast.Grammar, ts map[string]types.Type) []RuleInfo {
	infos := make([]RuleInfo, 0, len(g.Rules))
	for _, r := range g.Rules {
		info := RuleInfo{
			Name:   r.Name,
			Params: r.Params,
			Type:   types.Sprint(ts[r.Name]),
		}
		if r.Location != nil {
			info.Location = r.Location.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// Rules prints a table of the rules to w.
func Rules(w io.Writer, infos []RuleInfo, limit int) error {
	table := generateTableWithKeys(w, "rule", "params", "location", "value")
	table.SetAutoWrapText(false)
	for _, info := range infos {
		table.Append([]string{
			info.Name,
			strings.Join(info.Params, ", "),
			info.Location,
			checkStrLimit(info.Type, limit),
		})
	}
	if table.NumLines() > 0 {
		table.Render()
	}
	return nil
}

// Stats prints the build statistics to w.
func Stats(w io.Writer, s peg.Stats) error {
	table := generateTableWithKeys(w, "functions", "blocks", "instructions")
	table.Append([]string{fmt.Sprint(s.Funcs), fmt.Sprint(s.Blocks), fmt.Sprint(s.Instructions)})
	table.Render()
	return nil
}

func prettyMetrics(w io.Writer, m metrics.Metrics, limit int) error {
	tableMetrics := generateTableMetrics(w)
	populateTableMetrics(m, tableMetrics, limit)
	if tableMetrics.NumLines() > 0 {
		tableMetrics.Render()
	}
	return nil
}

func checkStrLimit(input string, limit int) string {
	if limit > 0 && len(input) > limit {
		input = input[:limit] + "..."
		return input
	}
	return input
}

func generateTableMetrics(writer io.Writer) *tablewriter.Table {
	return generateTableWithKeys(writer, "Metric", "Value")
}

func generateTableWithKeys(writer io.Writer, keys ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	aligns := make([]int, 0, len(keys))
	hdrs := make([]string, 0, len(keys))
	for _, k := range keys {
		hdrs = append(hdrs, strings.Title(k)) //nolint:staticcheck // SA1019, no unicode here
		aligns = append(aligns, tablewriter.ALIGN_LEFT)
	}
	table.SetHeader(hdrs)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment(aligns)
	return table
}

func populateTableMetrics(m metrics.Metrics, table *tablewriter.Table, prettyLimit int) {
	lines := [][]string{}
	for varName, varValueInterface := range m.All() {
		val, ok := varValueInterface.(map[string]any)
		if !ok {
			varValue := checkStrLimit(fmt.Sprintf("%v", varValueInterface), prettyLimit)
			lines = append(lines, []string{varName, varValue})
			continue
		}
		for k, v := range val {
			newVarName := fmt.Sprintf("%v_%v", varName, k)
			value := checkStrLimit(fmt.Sprintf("%v", v), prettyLimit)
			lines = append(lines, []string{newVarName, value})
		}
	}
	sortMetricRows(lines)
	table.AppendBulk(lines)
}

func sortMetricRows(data [][]string) {
	sort.Slice(data, func(i, j int) bool {
		return data[i][0] < data[j][0]
	})
}

// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"math"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions available to every size expression.
var functions = map[string]function.Function{
	"min": stdlib.MinFunc,
	"max": stdlib.MaxFunc,
}

// Context is the variable namespace shared by all expression
// evaluations of one resolution pass: total system memory under the
// name "ram", plus any variables bound by configuration directives.
type Context struct {
	// MemTotalMB is total system memory in megabytes.
	MemTotalMB float64

	vars map[string]cty.Value
}

// NewContext returns a Context with "ram" bound to memTotalMB.
func NewContext(memTotalMB float64) *Context {
	c := &Context{
		MemTotalMB: memTotalMB,
		vars:       make(map[string]cty.Value),
	}
	c.Bind("ram", memTotalMB)
	return c
}

// Bind makes value available to expressions under the given name,
// replacing any previous binding.
func (c *Context) Bind(name string, value float64) {
	c.vars[name] = cty.NumberFloatVal(value)
}

// Lookup returns the current binding of name.
func (c *Context) Lookup(name string) (float64, bool) {
	v, ok := c.vars[name]
	if !ok {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

func (c *Context) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{Variables: c.vars, Functions: functions}
}

// Expression is a compiled size expression. The original text is
// retained for error reporting and display.
type Expression struct {
	raw    string
	parsed hcl.Expression
}

// Compile parses an arithmetic expression. Magnitude-suffixed number
// literals are rewritten into explicit multiplications before parsing,
// so "500k" is accepted and means 500000.
func Compile(raw string) (*Expression, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(expandSuffixes(raw)), "<expression>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse expression %q: %w", raw, diags)
	}
	return &Expression{raw: raw, parsed: parsed}, nil
}

// String returns the expression as written in the configuration.
func (e *Expression) String() string {
	return e.raw
}

// value evaluates the expression and checks that the result is a
// known number.
func (e *Expression) value(ctx *Context) (cty.Value, error) {
	v, diags := e.parsed.Value(ctx.evalContext())
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluate %q: %w", e.raw, diags)
	}
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.Number) {
		return cty.NilVal, fmt.Errorf("expression %q does not produce a number", e.raw)
	}
	return v, nil
}

// Float evaluates the expression to a plain float64, preserving
// infinite results. A negative result is an error.
func (e *Expression) Float(ctx *Context) (float64, error) {
	v, err := e.value(ctx)
	if err != nil {
		return 0, err
	}
	bf := v.AsBigFloat()
	if bf.Sign() < 0 {
		return 0, fmt.Errorf("expression %q evaluates to a negative value", e.raw)
	}
	f, _ := bf.Float64()
	return f, nil
}

// SizeBytes evaluates the expression as a size in megabytes and
// converts it to bytes. Fractional megabytes are preserved down to
// byte granularity. An infinite result, from dividing a nonzero value
// by zero, is clamped to the maximum representable size. A negative
// result is an error.
func (e *Expression) SizeBytes(ctx *Context) (uint64, error) {
	v, err := e.value(ctx)
	if err != nil {
		return 0, err
	}
	bf := v.AsBigFloat()
	if bf.Sign() < 0 {
		return 0, fmt.Errorf("expression %q evaluates to a negative size", e.raw)
	}
	if bf.IsInf() {
		return math.MaxUint64, nil
	}
	bf.Mul(bf, big.NewFloat(1<<20))
	bytes, _ := bf.Uint64() // truncates toward zero, saturates at MaxUint64
	return bytes, nil
}

package report

import (
	"fmt"
	"strings"
)

// The generator assembles select expressions and predicates as a
// small AST instead of interpolated strings, so table aliases and
// bound parameters cannot drift apart: every node renders exactly
// once, appending its parameters in textual order.

// sqlWriter accumulates SQL text and its bound parameters.
type sqlWriter struct {
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) text(s string) {
	w.sb.WriteString(s)
}

func (w *sqlWriter) param(v any) {
	w.sb.WriteString("?")
	w.args = append(w.args, v)
}

// expr is one SQL expression node.
type expr interface {
	render(w *sqlWriter)
}

// rawExpr is fixed SQL text carrying no parameters. Constructors
// below are the only producers; nothing user-controlled reaches it.
type rawExpr string

func (e rawExpr) render(w *sqlWriter) {
	w.text(string(e))
}

// paramExpr renders a single bound parameter.
type paramExpr struct {
	value any
}

func (e paramExpr) render(w *sqlWriter) {
	w.param(e.value)
}

// binaryExpr renders (left op right).
type binaryExpr struct {
	op          string
	left, right expr
}

func (e binaryExpr) render(w *sqlWriter) {
	w.text("(")
	e.left.render(w)
	w.text(" " + e.op + " ")
	e.right.render(w)
	w.text(")")
}

// funcExpr renders name(arg, arg, ...).
type funcExpr struct {
	name string
	fargs []expr
}

func (e funcExpr) render(w *sqlWriter) {
	w.text(e.name + "(")
	for i, a := range e.fargs {
		if i > 0 {
			w.text(", ")
		}
		a.render(w)
	}
	w.text(")")
}

// caseExpr renders an ordered CASE WHEN ladder with no ELSE branch;
// an unmatched row yields NULL. Clause order is significant and
// preserved.
type caseExpr struct {
	whens []whenClause
}

type whenClause struct {
	cond expr
	then expr
}

func (e caseExpr) render(w *sqlWriter) {
	w.text("CASE")
	for _, wh := range e.whens {
		w.text(" WHEN ")
		wh.cond.render(w)
		w.text(" THEN ")
		wh.then.render(w)
	}
	w.text(" END")
}

// castReal renders CAST(inner AS REAL), forcing real division.
type castReal struct {
	inner expr
}

func (e castReal) render(w *sqlWriter) {
	w.text("CAST(")
	e.inner.render(w)
	w.text(" AS REAL)")
}

// Constructors.

func col(alias, column string) expr {
	return rawExpr(fmt.Sprintf("%s.%s", alias, column))
}

func lit(s string) expr {
	return rawExpr(s)
}

func param(v any) expr {
	return paramExpr{value: v}
}

func add(a, b expr) expr {
	return binaryExpr{op: "+", left: a, right: b}
}

func sub(a, b expr) expr {
	return binaryExpr{op: "-", left: a, right: b}
}

func cmp(a expr, op string, b expr) expr {
	return binaryExpr{op: op, left: a, right: b}
}

func and(a, b expr) expr {
	return binaryExpr{op: "AND", left: a, right: b}
}

func ifnull(e expr, fallback expr) expr {
	return funcExpr{name: "IFNULL", fargs: []expr{e, fallback}}
}

func ifnullZero(e expr) expr {
	return ifnull(e, lit("0"))
}

// ratio renders CAST(num AS REAL) / den. Division by zero is left
// unguarded on purpose: sqlite yields NULL, which post-processing
// passes through as an empty cell (preserved source leniency).
func ratio(num, den expr) expr {
	return binaryExpr{op: "/", left: castReal{inner: num}, right: den}
}

// percentage renders ROUND(ratio * 100, 2).
func percentage(num, den expr) expr {
	return funcExpr{name: "ROUND", fargs: []expr{
		binaryExpr{op: "*", left: ratio(num, den), right: lit("100")},
		lit("2"),
	}}
}

// renderExpr renders a standalone expression to SQL text and args.
func renderExpr(e expr) (string, []any) {
	var w sqlWriter
	e.render(&w)
	return w.sb.String(), w.args
}

package formula

import (
	"errors"
	"math"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// Evaluate parses and evaluates source against ctx.
//
// Evaluation never panics and never mutates ctx. Failures come back as a
// result with OK=false and one of the spreadsheet codes:
//
//   - #REF!    a referenced field is not a key of ctx.Fields
//   - #DIV/0!  division or modulo by zero
//   - #ERROR!  syntax errors, unknown functions, wrong argument counts,
//     type mismatches
//
// Every field reference is resolved before evaluation starts, so a missing
// field yields #REF! even when it sits in a branch that would not run.
func Evaluate(source string, ctx Context) fields.Result {
	root, err := parse(source)
	if err != nil {
		return fields.Failure(fields.ErrCodeError, err.Error())
	}

	for _, name := range refsOf(root) {
		if _, ok := ctx.Fields[name]; !ok {
			return fields.Failure(fields.ErrCodeRef, "unknown field "+quote(name))
		}
	}

	ev := evaluator{ctx: &ctx}

	v, err := ev.eval(root)
	if err != nil {
		return failureOf(err)
	}

	return fields.Success(v)
}

func failureOf(err error) fields.Result {
	var ee *evalError
	if errors.As(err, &ee) {
		return fields.Failure(ee.code, ee.msg)
	}

	return fields.Failure(fields.ErrCodeError, err.Error())
}

type evaluator struct {
	ctx *Context
}

func (e *evaluator) eval(n node) (fields.Value, error) {
	switch n := n.(type) {
	case *literal:
		return n.value, nil
	case *fieldRef:
		v, ok := e.ctx.Fields[n.name]
		if !ok {
			return fields.Null(), errRef("unknown field %s", quote(n.name))
		}

		return v, nil
	case *attrRef:
		return e.ctx.attribute(n.name), nil
	case *unary:
		return e.unary(n)
	case *binary:
		return e.binary(n)
	case *call:
		return e.call(n)
	}

	return fields.Null(), errEval("unsupported expression")
}

func (e *evaluator) unary(n *unary) (fields.Value, error) {
	x, err := e.eval(n.x)
	if err != nil {
		return fields.Null(), err
	}

	if n.op == tokBang {
		return fields.Bool(!truthy(x)), nil
	}

	f, err := arithNumber(x, "-")
	if err != nil {
		return fields.Null(), err
	}

	return fields.Number(-f), nil
}

func (e *evaluator) binary(n *binary) (fields.Value, error) {
	l, err := e.eval(n.l)
	if err != nil {
		return fields.Null(), err
	}

	// Short-circuit before touching the right side.
	switch n.op {
	case tokAndAnd:
		if !truthy(l) {
			return fields.Bool(false), nil
		}

		r, err := e.eval(n.r)
		if err != nil {
			return fields.Null(), err
		}

		return fields.Bool(truthy(r)), nil
	case tokOrOr:
		if truthy(l) {
			return fields.Bool(true), nil
		}

		r, err := e.eval(n.r)
		if err != nil {
			return fields.Null(), err
		}

		return fields.Bool(truthy(r)), nil
	}

	r, err := e.eval(n.r)
	if err != nil {
		return fields.Null(), err
	}

	switch n.op {
	case tokAmp:
		return fields.Text(l.Display() + r.Display()), nil
	case tokPlus:
		return add(l, r)
	case tokMinus:
		return subtract(l, r)
	case tokStar, tokSlash, tokPercent:
		return multiplicative(n.op, l, r)
	case tokEq:
		return fields.Bool(equal(l, r)), nil
	case tokNotEq:
		return fields.Bool(!equal(l, r)), nil
	case tokLess, tokLessEq, tokGreater, tokGreaterEq:
		return order(n.op, l, r)
	}

	return fields.Null(), errEval("unsupported operator %s", n.op)
}

func (e *evaluator) call(n *call) (fields.Value, error) {
	fn, ok := builtins[n.name]
	if !ok {
		return fields.Null(), errEval("unknown function %s", n.name)
	}

	if err := fn.checkArity(len(n.args)); err != nil {
		return fields.Null(), errEval("%s", err.Error())
	}

	return fn.call(e, n.args)
}

// evalAll evaluates args left to right, stopping at the first error.
func (e *evaluator) evalAll(args []node) ([]fields.Value, error) {
	out := make([]fields.Value, 0, len(args))

	for _, a := range args {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// truthy maps any value to a condition: null, false, zero, empty string and
// empty list are false.
func truthy(v fields.Value) bool {
	switch v.Kind() {
	case fields.KindNull:
		return false
	case fields.KindBoolean:
		b, _ := v.Boolean()
		return b
	case fields.KindNumber:
		f, _ := v.Num()
		return f != 0
	case fields.KindString, fields.KindList:
		return !v.IsEmpty()
	case fields.KindTimestamp:
		return true
	}

	return false
}

// arithNumber coerces an arithmetic operand: null is 0 (blank cell), numeric
// strings are parsed, everything else is a type mismatch.
func arithNumber(v fields.Value, op string) (float64, error) {
	if v.IsNull() {
		return 0, nil
	}

	f, ok := v.AsNumber()
	if !ok {
		return 0, errEval("cannot apply %s to %s %s", op, v.Kind(), quote(v.Display()))
	}

	return f, nil
}

func finite(f float64) (fields.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fields.Null(), errEval("result is not a finite number")
	}

	return fields.Number(f), nil
}

func add(l, r fields.Value) (fields.Value, error) {
	lt, lIsTime := l.Millis()
	rt, rIsTime := r.Millis()

	switch {
	case lIsTime && rIsTime:
		return fields.Null(), errEval("cannot add two dates")
	case lIsTime:
		days, err := arithNumber(r, "+")
		if err != nil {
			return fields.Null(), err
		}

		return fields.Timestamp(lt + int64(math.Round(days*float64(fields.MsPerDay)))), nil
	case rIsTime:
		days, err := arithNumber(l, "+")
		if err != nil {
			return fields.Null(), err
		}

		return fields.Timestamp(rt + int64(math.Round(days*float64(fields.MsPerDay)))), nil
	}

	a, err := arithNumber(l, "+")
	if err != nil {
		return fields.Null(), err
	}

	b, err := arithNumber(r, "+")
	if err != nil {
		return fields.Null(), err
	}

	return finite(a + b)
}

func subtract(l, r fields.Value) (fields.Value, error) {
	lt, lIsTime := l.Millis()
	rt, rIsTime := r.Millis()

	switch {
	case lIsTime && rIsTime:
		return fields.Number(float64(lt-rt) / float64(fields.MsPerDay)), nil
	case lIsTime:
		days, err := arithNumber(r, "-")
		if err != nil {
			return fields.Null(), err
		}

		return fields.Timestamp(lt - int64(math.Round(days*float64(fields.MsPerDay)))), nil
	case rIsTime:
		return fields.Null(), errEval("cannot subtract a date from a number")
	}

	a, err := arithNumber(l, "-")
	if err != nil {
		return fields.Null(), err
	}

	b, err := arithNumber(r, "-")
	if err != nil {
		return fields.Null(), err
	}

	return finite(a - b)
}

func multiplicative(op tokenKind, l, r fields.Value) (fields.Value, error) {
	sym := map[tokenKind]string{tokStar: "*", tokSlash: "/", tokPercent: "%"}[op]

	a, err := arithNumber(l, sym)
	if err != nil {
		return fields.Null(), err
	}

	b, err := arithNumber(r, sym)
	if err != nil {
		return fields.Null(), err
	}

	switch op {
	case tokStar:
		return finite(a * b)
	case tokSlash:
		if b == 0 {
			return fields.Null(), errDivZero()
		}

		return finite(a / b)
	default:
		if b == 0 {
			return fields.Null(), errDivZero()
		}

		return finite(floorMod(a, b))
	}
}

// floorMod is the remainder of a / b taking the sign of b, shared by % and
// MOD so -7 % 3 and MOD(-7, 3) are both 2.
func floorMod(a, b float64) float64 {
	return a - b*math.Floor(a/b)
}

// compare orders two values. ok is false when the kinds cannot be ordered
// against each other.
//
// Null compares as 0 against numbers and as "" against strings, matching its
// arithmetic meaning. A number against a string compares numerically when the
// string parses. Strings compare case-insensitively.
func compare(l, r fields.Value) (int, bool) {
	if l.IsNull() && r.IsNull() {
		return 0, true
	}

	if l.IsNull() {
		c, ok := compare(r, l)
		return -c, ok
	}

	switch l.Kind() {
	case fields.KindNumber:
		a, _ := l.Num()

		if r.IsNull() {
			return cmpFloat(a, 0), true
		}

		if b, ok := r.AsNumber(); ok {
			return cmpFloat(a, b), true
		}
	case fields.KindString:
		a, _ := l.Str()

		switch r.Kind() {
		case fields.KindNull:
			return strings.Compare(strings.ToLower(a), ""), true
		case fields.KindString:
			b, _ := r.Str()
			return strings.Compare(strings.ToLower(a), strings.ToLower(b)), true
		case fields.KindNumber:
			c, ok := compare(r, l)
			return -c, ok
		case fields.KindTimestamp:
			c, ok := compare(r, l)
			return -c, ok
		}
	case fields.KindTimestamp:
		a, _ := l.Millis()

		switch r.Kind() {
		case fields.KindTimestamp:
			b, _ := r.Millis()
			return cmpInt(a, b), true
		case fields.KindString:
			s, _ := r.Str()
			if t, ok := fields.ParseDate(s); ok {
				return cmpInt(a, t.UnixMilli()), true
			}
		}
	case fields.KindBoolean:
		a, _ := l.Boolean()
		if b, ok := r.Boolean(); ok {
			return cmpInt(boolInt(a), boolInt(b)), true
		}
	case fields.KindList:
		if l.Equal(r) {
			return 0, true
		}
	}

	return 0, false
}

func equal(l, r fields.Value) bool {
	c, ok := compare(l, r)

	return ok && c == 0
}

func order(op tokenKind, l, r fields.Value) (fields.Value, error) {
	c, ok := compare(l, r)
	if !ok || l.Kind() == fields.KindList || r.Kind() == fields.KindList {
		return fields.Null(), errEval("cannot compare %s with %s", l.Kind(), r.Kind())
	}

	switch op {
	case tokLess:
		return fields.Bool(c < 0), nil
	case tokLessEq:
		return fields.Bool(c <= 0), nil
	case tokGreater:
		return fields.Bool(c > 0), nil
	default:
		return fields.Bool(c >= 0), nil
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func quote(s string) string {
	return `"` + s + `"`
}

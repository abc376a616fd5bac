package formula

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// Function categories reported by [AvailableFunctions].
const (
	CategoryConditional = "conditional"
	CategoryMath        = "math"
	CategoryString      = "string"
	CategoryDate        = "date"
)

// Variadic is the MaxArgs of functions that take any number of arguments.
const Variadic = -1

// FunctionSignature describes a builtin for editor autocomplete and help.
// Returns is a [fields.Kind] name, or "any" when the result kind depends on
// the arguments.
type FunctionSignature struct {
	Name        string
	MinArgs     int
	MaxArgs     int
	Returns     string
	Category    string
	Syntax      string
	Description string
}

type builtin struct {
	sig FunctionSignature

	// pairs requires an even argument count (IFS).
	pairs bool

	// call receives unevaluated arguments so conditionals can skip branches.
	call func(e *evaluator, args []node) (fields.Value, error)
}

func (b *builtin) checkArity(n int) error {
	s := b.sig

	switch {
	case n < s.MinArgs && s.MinArgs == s.MaxArgs:
		return fmt.Errorf("%s expects %d argument(s), got %d", s.Name, s.MinArgs, n)
	case n < s.MinArgs:
		return fmt.Errorf("%s expects at least %d argument(s), got %d", s.Name, s.MinArgs, n)
	case s.MaxArgs != Variadic && n > s.MaxArgs:
		return fmt.Errorf("%s expects at most %d argument(s), got %d", s.Name, s.MaxArgs, n)
	case b.pairs && n%2 != 0:
		return fmt.Errorf("%s expects condition/value pairs, got %d argument(s)", s.Name, n)
	}

	return nil
}

// eager wraps a function whose arguments are all evaluated left to right
// before it runs.
func eager(fn func(e *evaluator, args []fields.Value) (fields.Value, error)) func(*evaluator, []node) (fields.Value, error) {
	return func(e *evaluator, nodes []node) (fields.Value, error) {
		args, err := e.evalAll(nodes)
		if err != nil {
			return fields.Null(), err
		}

		return fn(e, args)
	}
}

func numeric1(name string, fn func(float64) (fields.Value, error)) func(*evaluator, []node) (fields.Value, error) {
	return eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
		f, err := arithNumber(args[0], name)
		if err != nil {
			return fields.Null(), err
		}

		return fn(f)
	})
}

var builtins = map[string]*builtin{}

func register(b *builtin) {
	builtins[b.sig.Name] = b
}

// AvailableFunctions lists every builtin sorted by category, then name.
func AvailableFunctions() []FunctionSignature {
	out := make([]FunctionSignature, 0, len(builtins))
	for _, b := range builtins {
		out = append(out, b.sig)
	}

	slices.SortFunc(out, func(a, b FunctionSignature) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}

		return strings.Compare(a.Name, b.Name)
	})

	return out
}

// LookupFunction returns the signature of a builtin, case-insensitively.
func LookupFunction(name string) (FunctionSignature, bool) {
	b, ok := builtins[strings.ToUpper(name)]
	if !ok {
		return FunctionSignature{}, false
	}

	return b.sig, true
}

func init() {
	registerConditionals()
	registerMath()
	registerStrings()
	registerDates()
}

func registerConditionals() {
	register(&builtin{
		sig: FunctionSignature{
			Name: "IF", MinArgs: 2, MaxArgs: 3, Returns: "any", Category: CategoryConditional,
			Syntax:      "IF(condition, then, [else])",
			Description: "Returns then when condition is truthy, otherwise else (null when omitted). Only the chosen branch is evaluated.",
		},
		call: func(e *evaluator, args []node) (fields.Value, error) {
			cond, err := e.eval(args[0])
			if err != nil {
				return fields.Null(), err
			}

			if truthy(cond) {
				return e.eval(args[1])
			}

			if len(args) == 3 {
				return e.eval(args[2])
			}

			return fields.Null(), nil
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "IFS", MinArgs: 2, MaxArgs: Variadic, Returns: "any", Category: CategoryConditional,
			Syntax:      "IFS(condition1, value1, [condition2, value2, ...])",
			Description: "Returns the value paired with the first truthy condition.",
		},
		pairs: true,
		call: func(e *evaluator, args []node) (fields.Value, error) {
			for i := 0; i+1 < len(args); i += 2 {
				cond, err := e.eval(args[i])
				if err != nil {
					return fields.Null(), err
				}

				if truthy(cond) {
					return e.eval(args[i+1])
				}
			}

			return fields.Null(), errEval("IFS: no condition matched")
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "AND", MinArgs: 1, MaxArgs: Variadic, Returns: "boolean", Category: CategoryConditional,
			Syntax:      "AND(a, b, ...)",
			Description: "True when every argument is truthy. Stops at the first falsy argument.",
		},
		call: func(e *evaluator, args []node) (fields.Value, error) {
			for _, a := range args {
				v, err := e.eval(a)
				if err != nil {
					return fields.Null(), err
				}

				if !truthy(v) {
					return fields.Bool(false), nil
				}
			}

			return fields.Bool(true), nil
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "OR", MinArgs: 1, MaxArgs: Variadic, Returns: "boolean", Category: CategoryConditional,
			Syntax:      "OR(a, b, ...)",
			Description: "True when any argument is truthy. Stops at the first truthy argument.",
		},
		call: func(e *evaluator, args []node) (fields.Value, error) {
			for _, a := range args {
				v, err := e.eval(a)
				if err != nil {
					return fields.Null(), err
				}

				if truthy(v) {
					return fields.Bool(true), nil
				}
			}

			return fields.Bool(false), nil
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "NOT", MinArgs: 1, MaxArgs: 1, Returns: "boolean", Category: CategoryConditional,
			Syntax: "NOT(value)", Description: "Negates the truthiness of value.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			return fields.Bool(!truthy(args[0])), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "ISBLANK", MinArgs: 1, MaxArgs: 1, Returns: "boolean", Category: CategoryConditional,
			Syntax: "ISBLANK(value)", Description: "True for null, empty text and empty selections.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			return fields.Bool(args[0].IsEmpty()), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "IFERROR", MinArgs: 2, MaxArgs: 2, Returns: "any", Category: CategoryConditional,
			Syntax:      "IFERROR(value, fallback)",
			Description: "Returns value, or fallback when evaluating value fails (#ERROR!, #DIV/0!).",
		},
		call: func(e *evaluator, args []node) (fields.Value, error) {
			v, err := e.eval(args[0])
			if err == nil {
				return v, nil
			}

			return e.eval(args[1])
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "COALESCE", MinArgs: 1, MaxArgs: Variadic, Returns: "any", Category: CategoryConditional,
			Syntax:      "COALESCE(a, b, ...)",
			Description: "Returns the first non-empty argument. Later arguments are not evaluated.",
		},
		call: func(e *evaluator, args []node) (fields.Value, error) {
			for _, a := range args {
				v, err := e.eval(a)
				if err != nil {
					return fields.Null(), err
				}

				if !v.IsEmpty() {
					return v, nil
				}
			}

			return fields.Null(), nil
		},
	})
}

func registerMath() {
	register(&builtin{
		sig: FunctionSignature{
			Name: "ABS", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryMath,
			Syntax: "ABS(x)", Description: "Absolute value.",
		},
		call: numeric1("ABS", func(f float64) (fields.Value, error) { return fields.Number(math.Abs(f)), nil }),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "ROUND", MinArgs: 1, MaxArgs: 2, Returns: "number", Category: CategoryMath,
			Syntax: "ROUND(x, [digits])", Description: "Rounds half away from zero to digits decimals (default 0).",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			x, err := arithNumber(args[0], "ROUND")
			if err != nil {
				return fields.Null(), err
			}

			digits := 0.0
			if len(args) == 2 {
				digits, err = arithNumber(args[1], "ROUND")
				if err != nil {
					return fields.Null(), err
				}
			}

			scale := math.Pow(10, math.Trunc(digits))

			return finite(math.Round(x*scale) / scale)
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "FLOOR", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryMath,
			Syntax: "FLOOR(x)", Description: "Largest integer not greater than x.",
		},
		call: numeric1("FLOOR", func(f float64) (fields.Value, error) { return fields.Number(math.Floor(f)), nil }),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "CEIL", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryMath,
			Syntax: "CEIL(x)", Description: "Smallest integer not less than x.",
		},
		call: numeric1("CEIL", func(f float64) (fields.Value, error) { return fields.Number(math.Ceil(f)), nil }),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "SQRT", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryMath,
			Syntax: "SQRT(x)", Description: "Square root. Negative input is an error.",
		},
		call: numeric1("SQRT", func(f float64) (fields.Value, error) {
			if f < 0 {
				return fields.Null(), errEval("SQRT of a negative number")
			}

			return fields.Number(math.Sqrt(f)), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "POWER", MinArgs: 2, MaxArgs: 2, Returns: "number", Category: CategoryMath,
			Syntax: "POWER(base, exponent)", Description: "base raised to exponent.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			b, err := arithNumber(args[0], "POWER")
			if err != nil {
				return fields.Null(), err
			}

			x, err := arithNumber(args[1], "POWER")
			if err != nil {
				return fields.Null(), err
			}

			return finite(math.Pow(b, x))
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "MOD", MinArgs: 2, MaxArgs: 2, Returns: "number", Category: CategoryMath,
			Syntax: "MOD(a, b)", Description: "Remainder of a / b with the sign of b, same as a % b.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			a, err := arithNumber(args[0], "MOD")
			if err != nil {
				return fields.Null(), err
			}

			b, err := arithNumber(args[1], "MOD")
			if err != nil {
				return fields.Null(), err
			}

			if b == 0 {
				return fields.Null(), errDivZero()
			}

			return finite(floorMod(a, b))
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "SUM", MinArgs: 1, MaxArgs: Variadic, Returns: "number", Category: CategoryMath,
			Syntax: "SUM(a, b, ...)", Description: "Sum of the arguments. Blank arguments are skipped.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			nums, err := numbersSkippingBlanks(args, "SUM")
			if err != nil {
				return fields.Null(), err
			}

			total := 0.0
			for _, f := range nums {
				total += f
			}

			return finite(total)
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "AVERAGE", MinArgs: 1, MaxArgs: Variadic, Returns: "number", Category: CategoryMath,
			Syntax: "AVERAGE(a, b, ...)", Description: "Mean of the non-blank arguments; #DIV/0! when all are blank.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			nums, err := numbersSkippingBlanks(args, "AVERAGE")
			if err != nil {
				return fields.Null(), err
			}

			if len(nums) == 0 {
				return fields.Null(), errDivZero()
			}

			total := 0.0
			for _, f := range nums {
				total += f
			}

			return finite(total / float64(len(nums)))
		}),
	})

	extreme := func(name string, better func(a, b float64) bool) {
		register(&builtin{
			sig: FunctionSignature{
				Name: name, MinArgs: 1, MaxArgs: Variadic, Returns: "number", Category: CategoryMath,
				Syntax:      name + "(a, b, ...)",
				Description: "Extreme of the non-blank arguments; 0 when all are blank.",
			},
			call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
				nums, err := numbersSkippingBlanks(args, name)
				if err != nil {
					return fields.Null(), err
				}

				if len(nums) == 0 {
					return fields.Number(0), nil
				}

				best := nums[0]
				for _, f := range nums[1:] {
					if better(f, best) {
						best = f
					}
				}

				return fields.Number(best), nil
			}),
		})
	}

	extreme("MIN", func(a, b float64) bool { return a < b })
	extreme("MAX", func(a, b float64) bool { return a > b })
}

func numbersSkippingBlanks(args []fields.Value, fn string) ([]float64, error) {
	out := make([]float64, 0, len(args))

	for _, v := range args {
		if v.IsEmpty() {
			continue
		}

		f, ok := v.AsNumber()
		if !ok {
			return nil, errEval("%s: %s %s is not a number", fn, v.Kind(), quote(v.Display()))
		}

		out = append(out, f)
	}

	return out, nil
}

func registerStrings() {
	register(&builtin{
		sig: FunctionSignature{
			Name: "CONCAT", MinArgs: 1, MaxArgs: Variadic, Returns: "string", Category: CategoryString,
			Syntax: "CONCAT(a, b, ...)", Description: "Joins the text form of every argument.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			var b strings.Builder
			for _, v := range args {
				b.WriteString(v.Display())
			}

			return fields.Text(b.String()), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "LEN", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryString,
			Syntax: "LEN(text)", Description: "Number of characters.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			return fields.Number(float64(utf8.RuneCountInString(args[0].Display()))), nil
		}),
	})

	textFn := func(name, desc string, fn func(string) string) {
		register(&builtin{
			sig: FunctionSignature{
				Name: name, MinArgs: 1, MaxArgs: 1, Returns: "string", Category: CategoryString,
				Syntax: name + "(text)", Description: desc,
			},
			call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
				return fields.Text(fn(args[0].Display())), nil
			}),
		})
	}

	textFn("UPPER", "Upper-cases text.", strings.ToUpper)
	textFn("LOWER", "Lower-cases text.", strings.ToLower)
	textFn("TRIM", "Removes leading and trailing whitespace.", strings.TrimSpace)
	textFn("TEXT", "Text form of any value.", func(s string) string { return s })

	side := func(name string, take func(r []rune, n int) []rune) {
		register(&builtin{
			sig: FunctionSignature{
				Name: name, MinArgs: 1, MaxArgs: 2, Returns: "string", Category: CategoryString,
				Syntax: name + "(text, [count])", Description: "Takes count characters (default 1) from the " + strings.ToLower(name) + ".",
			},
			call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
				n := 1.0
				if len(args) == 2 {
					var err error

					n, err = arithNumber(args[1], name)
					if err != nil {
						return fields.Null(), err
					}
				}

				if n < 0 || math.IsNaN(n) {
					return fields.Null(), errEval("%s: count must not be negative", name)
				}

				runes := []rune(args[0].Display())
				if n > float64(len(runes)) {
					n = float64(len(runes))
				}

				return fields.Text(string(take(runes, int(n)))), nil
			}),
		})
	}

	side("LEFT", func(r []rune, n int) []rune { return r[:n] })
	side("RIGHT", func(r []rune, n int) []rune { return r[len(r)-n:] })

	register(&builtin{
		sig: FunctionSignature{
			Name: "CONTAINS", MinArgs: 2, MaxArgs: 2, Returns: "boolean", Category: CategoryString,
			Syntax: "CONTAINS(text, search)", Description: "Case-insensitive substring test. For selections, tests membership.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			needle := strings.ToLower(args[1].Display())

			if items, ok := args[0].Items(); ok {
				for _, item := range items {
					if strings.ToLower(item) == needle {
						return fields.Bool(true), nil
					}
				}

				return fields.Bool(false), nil
			}

			return fields.Bool(strings.Contains(strings.ToLower(args[0].Display()), needle)), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "REPLACE", MinArgs: 3, MaxArgs: 3, Returns: "string", Category: CategoryString,
			Syntax: "REPLACE(text, old, new)", Description: "Replaces every occurrence of old with new.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			old := args[1].Display()
			if old == "" {
				return fields.Text(args[0].Display()), nil
			}

			return fields.Text(strings.ReplaceAll(args[0].Display(), old, args[2].Display())), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "VALUE", MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryString,
			Syntax: "VALUE(text)", Description: "Parses text as a number.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			f, ok := args[0].AsNumber()
			if !ok {
				return fields.Null(), errEval("VALUE: %s is not a number", quote(args[0].Display()))
			}

			return fields.Number(f), nil
		}),
	})
}

func registerDates() {
	register(&builtin{
		sig: FunctionSignature{
			Name: "NOW", MinArgs: 0, MaxArgs: 0, Returns: "timestamp", Category: CategoryDate,
			Syntax: "NOW()", Description: "Current instant of the evaluation clock.",
		},
		call: func(e *evaluator, _ []node) (fields.Value, error) {
			if e.ctx.Now.IsZero() {
				return fields.Null(), errEval("NOW: no clock in context")
			}

			return fields.Time(e.ctx.Now), nil
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "TODAY", MinArgs: 0, MaxArgs: 0, Returns: "timestamp", Category: CategoryDate,
			Syntax: "TODAY()", Description: "Start of the current UTC day.",
		},
		call: func(e *evaluator, _ []node) (fields.Value, error) {
			if e.ctx.Now.IsZero() {
				return fields.Null(), errEval("TODAY: no clock in context")
			}

			return fields.Time(startOfDay(e.ctx.Now)), nil
		},
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "DATE", MinArgs: 3, MaxArgs: 3, Returns: "timestamp", Category: CategoryDate,
			Syntax: "DATE(year, month, day)", Description: "Midnight UTC of the given day. Out-of-range parts roll over.",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			parts := make([]int, 3)

			for i, v := range args {
				f, err := arithNumber(v, "DATE")
				if err != nil {
					return fields.Null(), err
				}

				parts[i], err = intArg(f, "DATE")
				if err != nil {
					return fields.Null(), err
				}
			}

			return fields.Time(time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)), nil
		}),
	})

	part := func(name, desc string, fn func(t time.Time) int) {
		register(&builtin{
			sig: FunctionSignature{
				Name: name, MinArgs: 1, MaxArgs: 1, Returns: "number", Category: CategoryDate,
				Syntax: name + "(date)", Description: desc,
			},
			call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
				t, err := asTime(args[0], name)
				if err != nil {
					return fields.Null(), err
				}

				return fields.Number(float64(fn(t))), nil
			}),
		})
	}

	part("YEAR", "Calendar year.", func(t time.Time) int { return t.Year() })
	part("MONTH", "Month 1-12.", func(t time.Time) int { return int(t.Month()) })
	part("DAY", "Day of month 1-31.", func(t time.Time) int { return t.Day() })
	part("WEEKDAY", "Day of week, 1 (Sunday) to 7 (Saturday).", func(t time.Time) int { return int(t.Weekday()) + 1 })

	register(&builtin{
		sig: FunctionSignature{
			Name: "DATEADD", MinArgs: 2, MaxArgs: 3, Returns: "timestamp", Category: CategoryDate,
			Syntax:      "DATEADD(date, amount, [unit])",
			Description: "Adds amount of unit (minutes, hours, days, weeks, months, years; default days).",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			t, err := asTime(args[0], "DATEADD")
			if err != nil {
				return fields.Null(), err
			}

			f, err := arithNumber(args[1], "DATEADD")
			if err != nil {
				return fields.Null(), err
			}

			amount, err := intArg(f, "DATEADD")
			if err != nil {
				return fields.Null(), err
			}

			unit := "days"
			if len(args) == 3 {
				unit = args[2].Display()
			}

			out, err := addUnits(t, amount, unit)
			if err != nil {
				return fields.Null(), err
			}

			return fields.Time(out), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "DATEDIFF", MinArgs: 2, MaxArgs: 3, Returns: "number", Category: CategoryDate,
			Syntax:      "DATEDIFF(start, end, [unit])",
			Description: "Whole units from start to end, truncated toward zero (default days).",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			start, err := asTime(args[0], "DATEDIFF")
			if err != nil {
				return fields.Null(), err
			}

			end, err := asTime(args[1], "DATEDIFF")
			if err != nil {
				return fields.Null(), err
			}

			unit := "days"
			if len(args) == 3 {
				unit = args[2].Display()
			}

			n, err := diffUnits(start, end, unit)
			if err != nil {
				return fields.Null(), err
			}

			return fields.Number(float64(n)), nil
		}),
	})

	register(&builtin{
		sig: FunctionSignature{
			Name: "FORMATDATE", MinArgs: 1, MaxArgs: 2, Returns: "string", Category: CategoryDate,
			Syntax:      "FORMATDATE(date, [pattern])",
			Description: "Formats date with YYYY, MM, DD, HH, mm, ss placeholders (default YYYY-MM-DD).",
		},
		call: eager(func(_ *evaluator, args []fields.Value) (fields.Value, error) {
			t, err := asTime(args[0], "FORMATDATE")
			if err != nil {
				return fields.Null(), err
			}

			pattern := "YYYY-MM-DD"
			if len(args) == 2 {
				pattern = args[1].Display()
			}

			return fields.Text(formatDate(t, pattern)), nil
		}),
	})
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// asTime accepts timestamps and date strings.
func asTime(v fields.Value, fn string) (time.Time, error) {
	if t, ok := v.TimeValue(); ok {
		return t, nil
	}

	if s, ok := v.Str(); ok {
		if t, ok := fields.ParseDate(s); ok {
			return t, nil
		}
	}

	return time.Time{}, errEval("%s: %s %s is not a date", fn, v.Kind(), quote(v.Display()))
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))

	return strings.TrimSuffix(u, "s")
}

func addUnits(t time.Time, n int, unit string) (time.Time, error) {
	switch normalizeUnit(unit) {
	case "minute":
		return t.Add(time.Duration(n) * time.Minute), nil
	case "hour":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "day":
		return t.AddDate(0, 0, n), nil
	case "week":
		return t.AddDate(0, 0, 7*n), nil
	case "month":
		return t.AddDate(0, n, 0), nil
	case "year":
		return t.AddDate(n, 0, 0), nil
	}

	return time.Time{}, errEval("unknown date unit %s", quote(unit))
}

func diffUnits(start, end time.Time, unit string) (int64, error) {
	d := end.Sub(start)

	switch normalizeUnit(unit) {
	case "minute":
		return int64(d / time.Minute), nil
	case "hour":
		return int64(d / time.Hour), nil
	case "day":
		return int64(d / (24 * time.Hour)), nil
	case "week":
		return int64(d / (7 * 24 * time.Hour)), nil
	case "month":
		return int64(monthsBetween(start, end)), nil
	case "year":
		return int64(monthsBetween(start, end) / 12), nil
	}

	return 0, errEval("unknown date unit %s", quote(unit))
}

// monthsBetween counts whole calendar months from start to end.
func monthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return -monthsBetween(end, start)
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if start.AddDate(0, months, 0).After(end) {
		months--
	}

	return months
}

// datePlaceholders maps FORMATDATE placeholders to Go layout codes.
var datePlaceholders = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// formatDate expands placeholders one at a time and copies everything else
// verbatim, so literal text such as "Q1" or "Jan" never reaches time.Format
// as a layout code.
func formatDate(t time.Time, pattern string) string {
	var b strings.Builder

outer:
	for i := 0; i < len(pattern); {
		for _, p := range datePlaceholders {
			if strings.HasPrefix(pattern[i:], p.token) {
				b.WriteString(t.Format(p.layout))
				i += len(p.token)

				continue outer
			}
		}

		b.WriteByte(pattern[i])
		i++
	}

	return b.String()
}

// maxIntArg bounds numbers converted to int for date arithmetic.
const maxIntArg = 1<<31 - 1

// intArg truncates f toward zero for use as a calendar part or amount.
func intArg(f float64, name string) (int, error) {
	if math.IsNaN(f) || math.Abs(f) > maxIntArg {
		return 0, errEval("%s: %s is out of range", name, fields.FormatNumber(f))
	}

	return int(f), nil
}

// Package formula parses and evaluates formula-field expressions.
//
// A formula reads built-in task attributes and custom fields and computes a
// [fields.Value]. The grammar, from lowest to highest precedence:
//
//	expr       = or
//	or         = and { ("||" | OR) and }
//	and        = comparison { ("&&" | AND) comparison }
//	comparison = concat [ ("=" | "==" | "!=" | "<>" | "<" | "<=" | ">" | ">=") concat ]
//	concat     = additive { "&" additive }
//	additive   = term { ("+" | "-") term }
//	term       = unary { ("*" | "/" | "%") unary }
//	unary      = ("-" | "+" | "!" | NOT) unary | primary
//	primary    = number | string | TRUE | FALSE | NULL
//	           | "{{" name "}}"
//	           | field("name") | prop("name")
//	           | NAME "(" [ expr { "," expr } ] ")"
//	           | attribute
//	           | "(" expr ")"
//
// Keywords, function names and attributes are case-insensitive. Strings take
// single or double quotes with backslash escapes. Attributes are status,
// priority, deadline, progress, title and description.
//
// The {{name}} form is the original template syntax where field values were
// substituted into an arithmetic string; "{{budget}} / {{hours}}" still
// evaluates the same way.
//
// # Evaluation
//
// Sub-expressions run left to right. IF, IFS, AND, OR, IFERROR, COALESCE,
// && and || skip operands whose value cannot change the result, so
//
//	IF({{hours}} != 0, {{budget}} / {{hours}}, 0)
//
// never divides by zero. Arithmetic treats null as 0 and parses numeric
// strings; other kinds are a type error. Adding a number to a date moves it
// by that many days, and subtracting two dates gives days.
// The % operator and MOD both take the sign of the divisor.
//
// Nothing escapes as a panic or error: [Evaluate] always returns a
// [fields.Result], failing with #REF!, #DIV/0! or #ERROR!.
//
// # Editing support
//
// [Validate] reports syntax, unbalanced, unknown_function, arity and
// unknown_field problems without evaluating. [ExtractFieldRefs] lists the
// fields a formula depends on for dependency-cycle checks, and
// [AvailableFunctions] describes the builtin library.
package formula

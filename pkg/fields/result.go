package fields

// ErrorCode is the spreadsheet-style code a failed evaluation carries.
// Callers render it verbatim in the cell.
type ErrorCode string

// ErrorCode values.
const (
	// ErrCodeRef marks a reference to a field that does not exist.
	ErrCodeRef ErrorCode = "#REF!"
	// ErrCodeError marks type mismatches, unknown functions, syntax errors
	// and aggregation over an empty set.
	ErrCodeError ErrorCode = "#ERROR!"
	// ErrCodeDivZero marks division or modulo by zero.
	ErrCodeDivZero ErrorCode = "#DIV/0!"
)

// Result is the outcome of a formula or rollup evaluation. Exactly one of
// (Value, Type) or (Error, ErrorCode) is meaningful, selected by OK.
type Result struct {
	OK        bool
	Value     Value
	Type      string
	Error     string
	ErrorCode ErrorCode
}

// Success wraps a value.
func Success(v Value) Result {
	return Result{OK: true, Value: v, Type: v.Kind().String()}
}

// Failure builds an error result.
func Failure(code ErrorCode, msg string) Result {
	return Result{ErrorCode: code, Error: msg}
}

// Display renders the value, or the error code for failures.
func (r Result) Display() string {
	if !r.OK {
		return string(r.ErrorCode)
	}

	return r.Value.Display()
}

package result

import "errors"

// stacker is implemented by errors that carry the stack captured where
// they were recorded.
type stacker interface {
	Stack() string
}

// FaultFromError builds a fault whose messages describe err and every
// error it wraps, outermost first. Each error contributes a "msg : ..."
// entry, followed by a "stack : ..." entry when it carries a stack.
// Wrappers whose text is identical to the error they wrap only contribute
// their stack.
func FaultFromError(err error) Result {
	if err == nil {
		return Fault()
	}

	return Fault(describe(err, "")...)
}

func describe(err error, parentMsg string) []string {
	var out []string

	msg := err.Error()
	if msg != parentMsg {
		out = append(out, "msg : "+msg)
	}
	if s, ok := err.(stacker); ok {
		out = append(out, "stack : "+s.Stack())
	}

	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if inner != nil {
				out = append(out, describe(inner, msg)...)
			}
		}
	default:
		if inner := errors.Unwrap(err); inner != nil {
			out = append(out, describe(inner, msg)...)
		}
	}

	return out
}

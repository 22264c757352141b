package ptb

// causality.go: result references must point strictly backwards.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCausality matches every *CausalityError under errors.Is.
var ErrCausality = errors.New("ptb causality violation")

// Violation categorizes a causality failure.
type Violation string

const (
	ViolationNotObject     Violation = "plan_not_object"
	ViolationNoCalls       Violation = "missing_calls"
	ViolationCallShape     Violation = "call_not_object"
	ViolationArgShape      Violation = "arg_not_object"
	ViolationResultType    Violation = "result_not_integer"
	ViolationResultNeg     Violation = "result_negative"
	ViolationResultForward Violation = "result_not_yet_produced"
)

// CausalityError reports the first violation found in a plan. Call and Arg
// are -1 when the violation is not tied to a position.
type CausalityError struct {
	Kind Violation
	Call int
	Arg  int
	// Ref is the offending result index for ViolationResultNeg and
	// ViolationResultForward.
	Ref int64
}

func (e *CausalityError) Error() string {
	var b strings.Builder
	b.WriteString("ptb causality: ")
	switch e.Kind {
	case ViolationNotObject:
		b.WriteString("plan must be an object")
	case ViolationNoCalls:
		b.WriteString("plan must contain a calls list")
	case ViolationCallShape:
		fmt.Fprintf(&b, "call %d must be an object", e.Call)
	case ViolationArgShape:
		fmt.Fprintf(&b, "argument %d in call %d must be an object", e.Arg, e.Call)
	case ViolationResultType:
		fmt.Fprintf(&b, "result index in call %d, arg %d must be an integer", e.Call, e.Arg)
	case ViolationResultNeg:
		fmt.Fprintf(&b, "result index %d in call %d, arg %d is negative", e.Ref, e.Call, e.Arg)
	case ViolationResultForward:
		fmt.Fprintf(&b, "call %d references result %d which has not been produced yet", e.Call, e.Ref)
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

// Is reports whether target is ErrCausality or a *CausalityError of the same
// kind.
func (e *CausalityError) Is(target error) bool {
	if target == ErrCausality {
		return true
	}
	if t, ok := target.(*CausalityError); ok {
		return e.Kind == t.Kind
	}
	return false
}

func violation(kind Violation, call, arg int, ref int64) *CausalityError {
	return &CausalityError{Kind: kind, Call: call, Arg: arg, Ref: ref}
}

// Validate checks that every Result argument refers to an earlier call.
func (p *Plan) Validate() error {
	if p == nil {
		return violation(ViolationNotObject, -1, -1, 0)
	}
	for i, c := range p.Calls {
		for j, a := range c.Args {
			if a == nil {
				return violation(ViolationArgShape, i, j, 0)
			}
			r, ok := a.(Result)
			if !ok {
				continue
			}
			if err := checkRef(int64(r.Index), i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateDocument runs the causality checks over an undecoded plan
// document. Only shape and ordering are checked; argument payloads other
// than result references are not inspected.
func ValidateDocument(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("ptb: decode plan: %w", err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return violation(ViolationNotObject, -1, -1, 0)
	}
	calls, ok := obj["calls"].([]any)
	if !ok {
		return violation(ViolationNoCalls, -1, -1, 0)
	}
	for i, rawCall := range calls {
		call, ok := rawCall.(map[string]any)
		if !ok {
			return violation(ViolationCallShape, i, -1, 0)
		}
		args, ok := call["args"].([]any)
		if !ok {
			continue
		}
		for j, rawArg := range args {
			arg, ok := rawArg.(map[string]any)
			if !ok {
				return violation(ViolationArgShape, i, j, 0)
			}
			ref, present := arg[TagResult]
			if !present {
				continue
			}
			n, ok := ref.(json.Number)
			if !ok {
				return violation(ViolationResultType, i, j, 0)
			}
			idx, err := n.Int64()
			if err != nil {
				return violation(ViolationResultType, i, j, 0)
			}
			if err := checkRef(idx, i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRef(idx int64, call, arg int) error {
	if idx < 0 {
		return violation(ViolationResultNeg, call, arg, idx)
	}
	if idx >= int64(call) {
		return violation(ViolationResultForward, call, arg, idx)
	}
	return nil
}

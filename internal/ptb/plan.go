package ptb

// plan.go: calls, plans and their JSON form.

import (
	"encoding/json"
	"fmt"
	"os"
)

// Call is one move call of a plan. Target is package::module::function.
type Call struct {
	Target   string
	TypeArgs []string
	Args     []Arg
}

// Plan is an ordered sequence of calls; a call's position is its execution
// order.
type Plan struct {
	Calls []Call
}

type wireCall struct {
	Target   string            `json:"target"`
	TypeArgs []string          `json:"type_args"`
	Args     []json.RawMessage `json:"args"`
}

type wirePlan struct {
	Calls []Call `json:"calls"`
}

// MarshalJSON encodes the call with tagged argument objects.
func (c Call) MarshalJSON() ([]byte, error) {
	w := wireCall{
		Target:   c.Target,
		TypeArgs: nonNil(c.TypeArgs),
		Args:     make([]json.RawMessage, 0, len(c.Args)),
	}
	for i, a := range c.Args {
		raw, err := MarshalArg(a)
		if err != nil {
			return nil, fmt.Errorf("call %s arg %d: %w", c.Target, i, err)
		}
		w.Args = append(w.Args, raw)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a call. Missing type_args or args decode as empty.
func (c *Call) UnmarshalJSON(data []byte) error {
	var w wireCall
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Target = w.Target
	c.TypeArgs = w.TypeArgs
	c.Args = make([]Arg, 0, len(w.Args))
	for i, raw := range w.Args {
		a, err := UnmarshalArg(raw)
		if err != nil {
			return fmt.Errorf("call %s arg %d: %w", w.Target, i, err)
		}
		c.Args = append(c.Args, a)
	}
	return nil
}

func (p Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePlan{Calls: nonNil(p.Calls)})
}

func (p *Plan) UnmarshalJSON(data []byte) error {
	var w wirePlan
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Calls = w.Calls
	return nil
}

// Decode checks the causal shape of data and then decodes it into a Plan.
// A causality problem is returned as *CausalityError.
func Decode(data []byte) (*Plan, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ptb: decode plan: %w", err)
	}
	return &p, nil
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Write validates p and writes it to path as indented JSON.
func Write(path string, p *Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Package outcome classifies dry-run and dev-inspect result documents into
// success or a failure record.
package outcome

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// StatusSuccess is the only status value treated as success.
const StatusSuccess = "success"

// Failure describes a failed or malformed execution result. Nil fields are
// unknown, not empty.
type Failure struct {
	Status        *string `json:"status"`
	Error         *string `json:"error"`
	AbortCode     *uint64 `json:"abort_code"`
	AbortLocation *string `json:"abort_location"`
}

// Classifier turns result documents into outcomes. It holds no mutable state.
type Classifier struct {
	parser AbortParser
	log    *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithParser replaces the regexp abort parser.
func WithParser(p AbortParser) Option {
	return func(c *Classifier) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{parser: RegexpParser{}, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify reports success when effects.status.status is "success". Every
// other shape is a failure; it never returns ok=true with a non-nil Failure.
func (c *Classifier) Classify(doc map[string]any) (ok bool, f *Failure) {
	effects, isObj := doc["effects"].(map[string]any)
	if !isObj {
		return false, &Failure{Error: strPtr("missing effects")}
	}
	status, isObj := effects["status"].(map[string]any)
	if !isObj {
		return false, &Failure{Error: strPtr("missing effects.status")}
	}

	f = &Failure{}
	if st, isStr := status["status"].(string); isStr {
		if st == StatusSuccess {
			return true, nil
		}
		f.Status = strPtr(st)
	}

	if e, isStr := status["error"].(string); isStr {
		f.Error = strPtr(e)
	}
	if f.Error == nil || *f.Error == "" {
		if src, isStr := doc["executionErrorSource"].(string); isStr && src != "" {
			f.Error = strPtr(src)
		}
	}

	if f.Error != nil && *f.Error != "" {
		if code, found := c.parser.AbortCode(*f.Error); found {
			f.AbortCode = &code
		}
		if loc, found := c.parser.AbortLocation(*f.Error); found {
			f.AbortLocation = &loc
		}
	}

	c.log.Debug("execution failed",
		zap.Stringp("status", f.Status),
		zap.Uint64p("abort_code", f.AbortCode),
		zap.Stringp("abort_location", f.AbortLocation))
	return false, f
}

// ClassifyJSON decodes data and classifies it. A document that is valid JSON
// but not an object classifies as missing effects; only invalid JSON is an
// error.
func (c *Classifier) ClassifyJSON(data []byte) (bool, *Failure, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false, nil, fmt.Errorf("outcome: decode result: %w", err)
	}
	doc, _ := v.(map[string]any)
	ok, f := c.Classify(doc)
	return ok, f, nil
}

func strPtr(s string) *string { return &s }

// Package ptb holds programmable transaction block plans: argument specs,
// calls, plans, their JSON wire form, and the causality validator that runs
// before a plan is handed to an executor.
package ptb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Arg is one argument spec of a call. The set of implementations is closed;
// Raw carries any tagged object this package does not model.
type Arg interface {
	// Tag is the single key of the wire object.
	Tag() string
	isArg()
}

// Wire tags.
const (
	TagBool          = "bool"
	TagU8            = "u8"
	TagU16           = "u16"
	TagU32           = "u32"
	TagU64           = "u64"
	TagAddress       = "address"
	TagVectorU8Hex   = "vector_u8_hex"
	TagVectorBool    = "vector_bool"
	TagVectorU16     = "vector_u16"
	TagVectorU32     = "vector_u32"
	TagVectorU64     = "vector_u64"
	TagVectorAddress = "vector_address"
	TagSharedObject  = "shared_object"
	TagSenderCoin    = "sender_sui_coin"
	TagResult        = "result"
)

type (
	BoolArg          struct{ V bool }
	U8Arg            struct{ V uint8 }
	U16Arg           struct{ V uint16 }
	U32Arg           struct{ V uint32 }
	U64Arg           struct{ V uint64 }
	AddressArg       struct{ V string }
	VectorU8HexArg   struct{ Hex string }
	VectorBoolArg    struct{ V []bool }
	VectorU16Arg     struct{ V []uint16 }
	VectorU32Arg     struct{ V []uint32 }
	VectorU64Arg     struct{ V []uint64 }
	VectorAddressArg struct{ V []string }
)

// SharedObject references a shared object by id.
type SharedObject struct {
	ID      string `json:"id"`
	Mutable bool   `json:"mutable"`
}

// SenderCoin asks the executor to pick one of the sender's native coins.
type SenderCoin struct {
	Index      int  `json:"index"`
	ExcludeGas bool `json:"exclude_gas"`
}

// Result refers to the output of an earlier call in the same plan.
type Result struct {
	Index int
}

// Raw is a tagged argument object with an unmodelled tag, kept verbatim.
type Raw struct {
	Key   string
	Value json.RawMessage
}

func (BoolArg) Tag() string          { return TagBool }
func (U8Arg) Tag() string            { return TagU8 }
func (U16Arg) Tag() string           { return TagU16 }
func (U32Arg) Tag() string           { return TagU32 }
func (U64Arg) Tag() string           { return TagU64 }
func (AddressArg) Tag() string       { return TagAddress }
func (VectorU8HexArg) Tag() string   { return TagVectorU8Hex }
func (VectorBoolArg) Tag() string    { return TagVectorBool }
func (VectorU16Arg) Tag() string     { return TagVectorU16 }
func (VectorU32Arg) Tag() string     { return TagVectorU32 }
func (VectorU64Arg) Tag() string     { return TagVectorU64 }
func (VectorAddressArg) Tag() string { return TagVectorAddress }
func (SharedObject) Tag() string     { return TagSharedObject }
func (SenderCoin) Tag() string       { return TagSenderCoin }
func (Result) Tag() string           { return TagResult }
func (r Raw) Tag() string            { return r.Key }

func (BoolArg) isArg()          {}
func (U8Arg) isArg()            {}
func (U16Arg) isArg()           {}
func (U32Arg) isArg()           {}
func (U64Arg) isArg()           {}
func (AddressArg) isArg()       {}
func (VectorU8HexArg) isArg()   {}
func (VectorBoolArg) isArg()    {}
func (VectorU16Arg) isArg()     {}
func (VectorU32Arg) isArg()     {}
func (VectorU64Arg) isArg()     {}
func (VectorAddressArg) isArg() {}
func (SharedObject) isArg()     {}
func (SenderCoin) isArg()       {}
func (Result) isArg()           {}
func (Raw) isArg()              {}

// ---------------------------------------------------------------------------
// Wire codec
// ---------------------------------------------------------------------------

// payload returns the value stored under the arg's tag.
func payload(a Arg) any {
	switch v := a.(type) {
	case BoolArg:
		return v.V
	case U8Arg:
		return v.V
	case U16Arg:
		return v.V
	case U32Arg:
		return v.V
	case U64Arg:
		return v.V
	case AddressArg:
		return v.V
	case VectorU8HexArg:
		return v.Hex
	case VectorBoolArg:
		return nonNil(v.V)
	case VectorU16Arg:
		return nonNil(v.V)
	case VectorU32Arg:
		return nonNil(v.V)
	case VectorU64Arg:
		return nonNil(v.V)
	case VectorAddressArg:
		return nonNil(v.V)
	case SharedObject:
		return v
	case SenderCoin:
		return v
	case Result:
		return v.Index
	case Raw:
		return v.Value
	default:
		panic(fmt.Sprintf("ptb: unhandled arg %T", a))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// MarshalArg encodes a as a single-key tagged object.
func MarshalArg(a Arg) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("ptb: nil arg")
	}
	return json.Marshal(map[string]any{a.Tag(): payload(a)})
}

// UnmarshalArg decodes a single-key tagged object. Objects with an unknown
// tag decode to Raw; a known tag with a payload of the wrong shape is an
// error.
func UnmarshalArg(data []byte) (Arg, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("ptb: arg: %w", err)
	}
	if len(obj) != 1 {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("ptb: arg must have exactly one key, got %v", keys)
	}
	for tag, raw := range obj {
		a, err := decodePayload(tag, raw)
		if err != nil {
			return nil, fmt.Errorf("ptb: arg %q: %w", tag, err)
		}
		return a, nil
	}
	return nil, nil
}

func decodePayload(tag string, raw json.RawMessage) (Arg, error) {
	var err error
	var a Arg
	switch tag {
	case TagBool:
		var v bool
		err = strictUnmarshal(raw, &v)
		a = BoolArg{V: v}
	case TagU8:
		var v uint8
		err = strictUnmarshal(raw, &v)
		a = U8Arg{V: v}
	case TagU16:
		var v uint16
		err = strictUnmarshal(raw, &v)
		a = U16Arg{V: v}
	case TagU32:
		var v uint32
		err = strictUnmarshal(raw, &v)
		a = U32Arg{V: v}
	case TagU64:
		var v uint64
		err = strictUnmarshal(raw, &v)
		a = U64Arg{V: v}
	case TagAddress:
		var v string
		err = strictUnmarshal(raw, &v)
		a = AddressArg{V: v}
	case TagVectorU8Hex:
		var v string
		err = strictUnmarshal(raw, &v)
		a = VectorU8HexArg{Hex: v}
	case TagVectorBool:
		var v []bool
		err = strictUnmarshal(raw, &v)
		a = VectorBoolArg{V: v}
	case TagVectorU16:
		var v []uint16
		err = strictUnmarshal(raw, &v)
		a = VectorU16Arg{V: v}
	case TagVectorU32:
		var v []uint32
		err = strictUnmarshal(raw, &v)
		a = VectorU32Arg{V: v}
	case TagVectorU64:
		var v []uint64
		err = strictUnmarshal(raw, &v)
		a = VectorU64Arg{V: v}
	case TagVectorAddress:
		var v []string
		err = strictUnmarshal(raw, &v)
		a = VectorAddressArg{V: v}
	case TagSharedObject:
		var v SharedObject
		err = strictUnmarshal(raw, &v)
		a = v
	case TagSenderCoin:
		var v SenderCoin
		err = strictUnmarshal(raw, &v)
		a = v
	case TagResult:
		var v int
		err = strictUnmarshal(raw, &v)
		a = Result{Index: v}
	default:
		a = Raw{Key: tag, Value: append(json.RawMessage(nil), raw...)}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

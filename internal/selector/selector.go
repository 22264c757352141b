// Package selector decides which functions of a package interface can be
// called directly with synthesized default arguments, and builds plans out
// of them.
package selector

import (
	"go.uber.org/zap"

	"inhabit/internal/chain"
	"inhabit/internal/iface"
	"inhabit/internal/ptb"
)

// Framework modules and structs the default argument table knows about.
const (
	moduleClock     = "clock"
	structClock     = "Clock"
	moduleRandom    = "random"
	structRandom    = "Random"
	moduleDenyList  = "deny_list"
	structDenyList  = "DenyList"
	moduleCoin      = "coin"
	structCoin      = "Coin"
	moduleTxContext = "tx_context"
	structTxContext = "TxContext"
)

// Selector is stateless apart from its constants table and may be shared
// between goroutines.
type Selector struct {
	profile chain.Profile
	log     *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger. Rejections are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProfile sets the chain constants. The default is chain.Sui().
func WithProfile(p chain.Profile) Option {
	return func(s *Selector) { s.profile = p }
}

// New builds a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{profile: chain.Sui(), log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Profile returns the constants table in use.
func (s *Selector) Profile() chain.Profile { return s.profile }

// ---------------------------------------------------------------------------
// Default arguments
// ---------------------------------------------------------------------------

// DefaultArg maps a parameter type to its default argument spec. ok is false
// for types with no default.
func (s *Selector) DefaultArg(t iface.Type) (arg ptb.Arg, ok bool) {
	p := s.profile
	switch v := t.(type) {
	case iface.Ref:
		d, isData := v.To.(iface.Datatype)
		if !isData {
			return nil, false
		}
		// Shared objects carry the reference's mutability, so it must be known.
		if p.IsFramework(d.Address) && !v.MutabilityUnknown {
			switch {
			case d.Module == moduleClock && d.Name == structClock:
				return ptb.SharedObject{ID: p.ClockID, Mutable: v.Mutable}, true
			case d.Module == moduleRandom && d.Name == structRandom:
				return ptb.SharedObject{ID: p.RandomID, Mutable: v.Mutable}, true
			case d.Module == moduleDenyList && d.Name == structDenyList:
				return ptb.SharedObject{ID: p.DenyListID, Mutable: v.Mutable}, true
			}
		}
		if s.isNativeCoin(d) {
			return senderCoin(), true
		}
		return nil, false

	case iface.Datatype:
		if s.isNativeCoin(v) {
			return senderCoin(), true
		}
		return nil, false

	case iface.Primitive:
		return s.scalarDefault(v.K)

	case iface.Vector:
		elem, isPrim := v.Elem.(iface.Primitive)
		if !isPrim {
			return nil, false
		}
		switch elem.K {
		case iface.KindU8:
			return ptb.VectorU8HexArg{Hex: "0x01"}, true
		case iface.KindBool:
			return ptb.VectorBoolArg{V: []bool{false}}, true
		case iface.KindU16:
			return ptb.VectorU16Arg{V: []uint16{1}}, true
		case iface.KindU32:
			return ptb.VectorU32Arg{V: []uint32{1}}, true
		case iface.KindU64:
			return ptb.VectorU64Arg{V: []uint64{1}}, true
		case iface.KindAddress:
			return ptb.VectorAddressArg{V: []string{p.DefaultAddress}}, true
		}
		return nil, false

	case iface.Other:
		return nil, false

	default:
		return nil, false
	}
}

func (s *Selector) scalarDefault(k iface.Kind) (ptb.Arg, bool) {
	switch k {
	case iface.KindBool:
		return ptb.BoolArg{V: false}, true
	case iface.KindU8:
		return ptb.U8Arg{V: 1}, true
	case iface.KindU16:
		return ptb.U16Arg{V: 1}, true
	case iface.KindU32:
		return ptb.U32Arg{V: 1}, true
	case iface.KindU64:
		return ptb.U64Arg{V: 1}, true
	case iface.KindAddress:
		return ptb.AddressArg{V: s.profile.DefaultAddress}, true
	}
	return nil, false
}

func senderCoin() ptb.Arg {
	return ptb.SenderCoin{Index: 0, ExcludeGas: true}
}

// isNativeCoin matches framework::coin::Coin<framework::<native>> exactly.
func (s *Selector) isNativeCoin(d iface.Datatype) bool {
	p := s.profile
	if !p.IsFramework(d.Address) || d.Module != moduleCoin || d.Name != structCoin || len(d.TypeArgs) != 1 {
		return false
	}
	inner, ok := d.TypeArgs[0].(iface.Datatype)
	return ok &&
		p.IsFramework(inner.Address) &&
		inner.Module == p.NativeCoinModule &&
		inner.Name == p.NativeCoinName &&
		len(inner.TypeArgs) == 0
}

// StripTxContext drops the last parameter when it is a reference to the
// framework's TxContext. At most one parameter is ever removed.
func (s *Selector) StripTxContext(params []iface.Type) []iface.Type {
	if len(params) == 0 {
		return nil
	}
	if s.isTxContextRef(params[len(params)-1]) {
		return params[:len(params)-1]
	}
	return params
}

func (s *Selector) isTxContextRef(t iface.Type) bool {
	r, ok := t.(iface.Ref)
	if !ok {
		return false
	}
	d, ok := r.To.(iface.Datatype)
	return ok &&
		d.Module == moduleTxContext &&
		d.Name == structTxContext &&
		s.profile.IsFrameworkLoose(d.Address)
}

// defaultArgs maps params in order and stops at the first parameter with no
// default.
func (s *Selector) defaultArgs(params []iface.Type) ([]ptb.Arg, bool) {
	params = s.StripTxContext(params)
	args := make([]ptb.Arg, 0, len(params))
	for _, p := range params {
		a, ok := s.DefaultArg(p)
		if !ok {
			return args, false
		}
		args = append(args, a)
	}
	return args, true
}

// Package iface models the package interface documents emitted by the Move
// bytecode extractor: modules, their functions, and the parameter types of
// each function.
//
// Type descriptors form a closed set. Every concrete type below implements
// Type through an unexported marker method, so a switch over Type values is
// exhaustive once it handles Primitive, Vector, Ref, Datatype and Other.
package iface

import (
	"sort"
	"strings"
)

// Kind is the discriminator carried by every type object.
type Kind string

const (
	KindBool     Kind = "bool"
	KindU8       Kind = "u8"
	KindU16      Kind = "u16"
	KindU32      Kind = "u32"
	KindU64      Kind = "u64"
	KindAddress  Kind = "address"
	KindVector   Kind = "vector"
	KindRef      Kind = "ref"
	KindDatatype Kind = "datatype"
)

// Type is a parameter type descriptor.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// Primitive is one of the scalar kinds: bool, u8, u16, u32, u64, address.
type Primitive struct {
	K Kind
}

// Vector is vector<Elem>.
type Vector struct {
	Elem Type
}

// Ref is &To or &mut To. MutabilityUnknown is set when the document did not
// say which; Mutable is then false.
type Ref struct {
	Mutable           bool
	MutabilityUnknown bool
	To                Type
}

// Datatype is a struct type address::module::name<type_args>.
type Datatype struct {
	Address  string
	Module   string
	Name     string
	TypeArgs []Type
}

// Other holds any type object whose kind is not modelled above (u128,
// signer, type parameters, ...) or whose payload is malformed. Tag keeps the
// raw discriminator for diagnostics.
type Other struct {
	Tag string
}

// Scalar singletons.
var (
	Bool    Type = Primitive{K: KindBool}
	U8      Type = Primitive{K: KindU8}
	U16     Type = Primitive{K: KindU16}
	U32     Type = Primitive{K: KindU32}
	U64     Type = Primitive{K: KindU64}
	Address Type = Primitive{K: KindAddress}
)

func (Primitive) isType() {}
func (Vector) isType()    {}
func (Ref) isType()       {}
func (Datatype) isType()  {}
func (Other) isType()     {}

func (p Primitive) Kind() Kind { return p.K }
func (Vector) Kind() Kind      { return KindVector }
func (Ref) Kind() Kind         { return KindRef }
func (Datatype) Kind() Kind    { return KindDatatype }
func (o Other) Kind() Kind     { return Kind(o.Tag) }

func (p Primitive) String() string { return string(p.K) }

func (v Vector) String() string {
	return "vector<" + typeString(v.Elem) + ">"
}

func (r Ref) String() string {
	if r.Mutable {
		return "&mut " + typeString(r.To)
	}
	return "&" + typeString(r.To)
}

func (d Datatype) String() string {
	var b strings.Builder
	b.WriteString(d.Address)
	b.WriteString("::")
	b.WriteString(d.Module)
	b.WriteString("::")
	b.WriteString(d.Name)
	if len(d.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, a := range d.TypeArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(typeString(a))
		}
		b.WriteByte('>')
	}
	return b.String()
}

func (o Other) String() string {
	if o.Tag == "" {
		return "?"
	}
	return "?" + o.Tag
}

func typeString(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

// ---------------------------------------------------------------------------
// Functions, modules, packages
// ---------------------------------------------------------------------------

// Visibility is a Move function visibility.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriend  Visibility = "friend"
	VisibilityPrivate Visibility = "private"
)

// Function describes one function of a module.
type Function struct {
	Visibility Visibility
	IsEntry    bool
	// TypeParams holds one raw placeholder per declared type parameter.
	TypeParams []string
	Params     []Type
}

// PublicEntry reports whether f is a public entry function.
func (f Function) PublicEntry() bool {
	return f.Visibility == VisibilityPublic && f.IsEntry
}

// Struct describes a struct declared by a module. Only its abilities are
// modelled.
type Struct struct {
	Abilities []string
}

// HasKey reports whether the struct has the key ability.
func (s Struct) HasKey() bool {
	for _, a := range s.Abilities {
		if strings.EqualFold(a, "key") {
			return true
		}
	}
	return false
}

// Module maps function names to descriptors.
type Module struct {
	Functions map[string]Function
	Structs   map[string]Struct
}

// FunctionNames returns the module's function names in lexicographic order.
func (m Module) FunctionNames() []string {
	return sortedKeys(m.Functions)
}

// Package is a decoded package interface.
type Package struct {
	ID string
	// Valid is false when the document has no well-formed modules mapping.
	Valid   bool
	Modules map[string]Module
}

// ModuleNames returns the package's module names in lexicographic order.
func (p *Package) ModuleNames() []string {
	return sortedKeys(p.Modules)
}

// Target renders the call target for a function of this package.
func (p *Package) Target(module, function string) string {
	return p.ID + "::" + module + "::" + function
}

// KeyTypes returns address::module::name for every struct with the key
// ability, sorted. These are the default target types of a package.
func (p *Package) KeyTypes() []string {
	var out []string
	for _, mn := range p.ModuleNames() {
		mod := p.Modules[mn]
		for _, sn := range sortedKeys(mod.Structs) {
			if mod.Structs[sn].HasKey() {
				out = append(out, p.ID+"::"+mn+"::"+sn)
			}
		}
	}
	return out
}

// Walk visits every function in (module, function) lexicographic order and
// stops early when fn returns false.
func (p *Package) Walk(fn func(module, function string, f Function) bool) {
	for _, mn := range p.ModuleNames() {
		mod := p.Modules[mn]
		for _, fnName := range mod.FunctionNames() {
			if !fn(mn, fnName, mod.Functions[fnName]) {
				return
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

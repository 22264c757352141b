package iface

// decode.go: lenient decoding of interface JSON.
//
// Interface documents are produced by an external tool and are not trusted
// to be well-formed. Decoding never fails on shape problems: entries that are
// not objects are dropped, and type objects with an unknown or malformed
// payload decode to Other. Only invalid JSON is reported as an error.

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPackageID is used when a document carries no usable package_id.
const DefaultPackageID = "0x0"

// Parse decodes a package interface document.
func Parse(data []byte) (*Package, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("iface: decode: %w", err)
	}
	pkg := &Package{ID: DefaultPackageID}

	obj, ok := top.(map[string]any)
	if !ok {
		return pkg, nil
	}
	if id, ok := obj["package_id"].(string); ok && id != "" {
		pkg.ID = id
	}

	modules, ok := obj["modules"].(map[string]any)
	if !ok {
		return pkg, nil
	}
	pkg.Valid = true
	pkg.Modules = make(map[string]Module, len(modules))
	for name, raw := range modules {
		modObj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		funs, ok := modObj["functions"].(map[string]any)
		if !ok {
			continue
		}
		mod := Module{Functions: make(map[string]Function, len(funs))}
		for fnName, rawFn := range funs {
			fnObj, ok := rawFn.(map[string]any)
			if !ok {
				continue
			}
			mod.Functions[fnName] = decodeFunction(fnObj)
		}
		if structs, ok := modObj["structs"].(map[string]any); ok {
			mod.Structs = make(map[string]Struct, len(structs))
			for sName, rawStruct := range structs {
				if sObj, ok := rawStruct.(map[string]any); ok {
					mod.Structs[sName] = Struct{Abilities: decodeAbilities(sObj["abilities"])}
				}
			}
		}
		pkg.Modules[name] = mod
	}
	return pkg, nil
}

// Load reads and decodes the interface document at path.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkg, nil
}

// ParseType decodes a single type object. ok is false when v is not a JSON
// object at all.
func ParseType(data []byte) (t Type, ok bool) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return decodeType(v)
}

func decodeFunction(obj map[string]any) Function {
	var f Function
	if v, ok := obj["visibility"].(string); ok {
		f.Visibility = Visibility(v)
	}
	if e, ok := obj["is_entry"].(bool); ok {
		f.IsEntry = e
	}
	if tps, ok := obj["type_params"].([]any); ok {
		for _, tp := range tps {
			raw, _ := json.Marshal(tp)
			f.TypeParams = append(f.TypeParams, string(raw))
		}
	}
	if params, ok := obj["params"].([]any); ok {
		f.Params = make([]Type, 0, len(params))
		for _, p := range params {
			if t, ok := decodeType(p); ok {
				f.Params = append(f.Params, t)
			}
		}
	}
	return f
}

// decodeAbilities accepts a list of ability names or an object wrapping one
// under "abilities".
func decodeAbilities(v any) []string {
	if obj, ok := v.(map[string]any); ok {
		v = obj["abilities"]
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, a := range list {
		if s, ok := a.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeType(v any) (Type, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	kind, _ := obj["kind"].(string)

	switch Kind(kind) {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindAddress:
		return Primitive{K: Kind(kind)}, true

	case KindVector:
		elem, ok := decodeType(obj["type"])
		if !ok {
			return Other{Tag: kind}, true
		}
		return Vector{Elem: elem}, true

	case KindRef:
		to, ok := decodeType(obj["to"])
		if !ok {
			return Other{Tag: kind}, true
		}
		mut, known := obj["mutable"].(bool)
		return Ref{Mutable: mut, MutabilityUnknown: !known, To: to}, true

	case KindDatatype:
		d := Datatype{}
		d.Address, _ = obj["address"].(string)
		d.Module, _ = obj["module"].(string)
		d.Name, _ = obj["name"].(string)
		if args, ok := obj["type_args"].([]any); ok {
			for _, a := range args {
				t, ok := decodeType(a)
				if !ok {
					t = Other{}
				}
				d.TypeArgs = append(d.TypeArgs, t)
			}
		}
		return d, true

	default:
		return Other{Tag: kind}, true
	}
}

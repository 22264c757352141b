package iface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInterface = `{
  "package_id": "0xabc",
  "modules": {
    "vault": {
      "functions": {
        "deposit": {
          "visibility": "public",
          "is_entry": true,
          "type_params": [],
          "params": [
            {"kind": "ref", "mutable": false, "to": {"kind": "datatype", "address": "0x2", "module": "clock", "name": "Clock", "type_args": []}},
            {"kind": "vector", "type": {"kind": "u8"}},
            "not-an-object",
            {"kind": "u128"}
          ]
        },
        "peek": {"visibility": "friend", "is_entry": false, "params": []},
        "broken": 7
      },
      "structs": {
        "Vault": {"abilities": ["key", "store"]},
        "Receipt": {"abilities": {"abilities": ["Key"]}},
        "Plain": {"abilities": ["copy", "drop"]},
        "Bad": 1
      }
    },
    "alpha": {"functions": {"go": {"visibility": "public", "is_entry": true, "type_params": [{"constraints": ["key"]}], "params": []}}},
    "junk": [],
    "nofuncs": {"functions": null}
  }
}`

func TestParse_Sample(t *testing.T) {
	pkg, err := Parse([]byte(sampleInterface))
	require.NoError(t, err)

	assert.Equal(t, "0xabc", pkg.ID)
	assert.True(t, pkg.Valid)
	assert.Equal(t, []string{"alpha", "vault"}, pkg.ModuleNames())

	vault := pkg.Modules["vault"]
	assert.Equal(t, []string{"deposit", "peek"}, vault.FunctionNames())

	dep := vault.Functions["deposit"]
	assert.True(t, dep.PublicEntry())
	require.Len(t, dep.Params, 3, "non-object params are dropped")

	ref, ok := dep.Params[0].(Ref)
	require.True(t, ok)
	assert.False(t, ref.Mutable)
	assert.Equal(t, Datatype{Address: "0x2", Module: "clock", Name: "Clock"}, ref.To)

	assert.Equal(t, Vector{Elem: U8}, dep.Params[1])
	assert.Equal(t, Other{Tag: "u128"}, dep.Params[2])

	assert.False(t, vault.Functions["peek"].PublicEntry())

	gofn := pkg.Modules["alpha"].Functions["go"]
	assert.Len(t, gofn.TypeParams, 1)
}

func TestParse_MissingModules(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no modules", `{"package_id": "0x1"}`},
		{"modules is a list", `{"package_id": "0x1", "modules": []}`},
		{"top level is a list", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			assert.False(t, pkg.Valid)
			assert.Empty(t, pkg.Modules)
		})
	}
}

func TestParse_DefaultPackageID(t *testing.T) {
	for _, doc := range []string{`{"modules": {}}`, `{"package_id": "", "modules": {}}`, `{"package_id": 5, "modules": {}}`} {
		pkg, err := Parse([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, DefaultPackageID, pkg.ID, doc)
		assert.True(t, pkg.Valid)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"modules":`))
	assert.Error(t, err)
}

func TestParseType_Malformed(t *testing.T) {
	tests := []struct {
		doc  string
		want Type
	}{
		{`{"kind": "ref", "to": {"kind": "u8"}}`, Ref{MutabilityUnknown: true, To: U8}},
		{`{"kind": "ref", "mutable": "yes", "to": {"kind": "u8"}}`, Ref{MutabilityUnknown: true, To: U8}},
		{`{"kind": "ref", "mutable": true, "to": "x"}`, Other{Tag: "ref"}},
		{`{"kind": "vector"}`, Other{Tag: "vector"}},
		{`{"kind": "type_param", "index": 0}`, Other{Tag: "type_param"}},
		{`{}`, Other{}},
		{`{"kind": "ref", "mutable": true, "to": {"kind": "u64"}}`, Ref{Mutable: true, To: U64}},
	}
	for _, tt := range tests {
		got, ok := ParseType([]byte(tt.doc))
		require.True(t, ok, tt.doc)
		assert.Equal(t, tt.want, got, tt.doc)
	}

	_, ok := ParseType([]byte(`"u8"`))
	assert.False(t, ok)
}

func TestWalk_Order(t *testing.T) {
	pkg, err := Parse([]byte(sampleInterface))
	require.NoError(t, err)

	var got []string
	pkg.Walk(func(module, function string, _ Function) bool {
		got = append(got, pkg.Target(module, function))
		return true
	})
	assert.Equal(t, []string{"0xabc::alpha::go", "0xabc::vault::deposit", "0xabc::vault::peek"}, got)

	got = got[:0]
	pkg.Walk(func(module, function string, _ Function) bool {
		got = append(got, function)
		return false
	})
	assert.Equal(t, []string{"go"}, got)
}

func TestTypeString(t *testing.T) {
	coin := Datatype{Address: "0x2", Module: "coin", Name: "Coin", TypeArgs: []Type{
		Datatype{Address: "0x2", Module: "sui", Name: "SUI"},
	}}
	assert.Equal(t, "&mut 0x2::coin::Coin<0x2::sui::SUI>", Ref{Mutable: true, To: coin}.String())
	assert.Equal(t, "vector<address>", Vector{Elem: Address}.String())
	assert.Equal(t, "?u256", Other{Tag: "u256"}.String())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iface.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleInterface), 0o644))

	pkg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", pkg.ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestKeyTypes(t *testing.T) {
	pkg, err := Parse([]byte(sampleInterface))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc::vault::Receipt", "0xabc::vault::Vault"}, pkg.KeyTypes())

	empty, err := Parse([]byte(`{"modules": {}}`))
	require.NoError(t, err)
	assert.Empty(t, empty.KeyTypes())
}

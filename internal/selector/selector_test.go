package selector

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"inhabit/internal/chain"
	"inhabit/internal/iface"
	"inhabit/internal/ptb"
)

var framework = chain.Sui().FrameworkAddress

func fw(module, name string, args ...iface.Type) iface.Datatype {
	return iface.Datatype{Address: framework, Module: module, Name: name, TypeArgs: args}
}

func coinSUI() iface.Datatype {
	return fw("coin", "Coin", fw("sui", "SUI"))
}

func txCtx(mutable bool) iface.Type {
	return iface.Ref{Mutable: mutable, To: fw("tx_context", "TxContext")}
}

func TestDefaultArg(t *testing.T) {
	s := New()
	addr := "0x" + strings.Repeat("1", 64)

	tests := []struct {
		name string
		in   iface.Type
		want ptb.Arg // nil means unsupported
	}{
		{"clock", iface.Ref{To: fw("clock", "Clock")}, ptb.SharedObject{ID: "0x6"}},
		{"mut random", iface.Ref{Mutable: true, To: fw("random", "Random")}, ptb.SharedObject{ID: "0x8", Mutable: true}},
		{"deny list", iface.Ref{Mutable: true, To: fw("deny_list", "DenyList")}, ptb.SharedObject{ID: "0x403", Mutable: true}},
		{"clock without mutability", iface.Ref{MutabilityUnknown: true, To: fw("clock", "Clock")}, nil},
		{"coin ref without mutability", iface.Ref{MutabilityUnknown: true, To: coinSUI()}, ptb.SenderCoin{Index: 0, ExcludeGas: true}},
		{"clock at short address", iface.Ref{To: iface.Datatype{Address: "0x2", Module: "clock", Name: "Clock"}}, nil},
		{"coin value", coinSUI(), ptb.SenderCoin{Index: 0, ExcludeGas: true}},
		{"coin ref", iface.Ref{Mutable: true, To: coinSUI()}, ptb.SenderCoin{Index: 0, ExcludeGas: true}},
		{"coin of other type", fw("coin", "Coin", iface.Datatype{Address: "0x5", Module: "x", Name: "X"}), nil},
		{"coin without type arg", fw("coin", "Coin"), nil},
		{"coin of generic sui", fw("coin", "Coin", fw("sui", "SUI", iface.U8)), nil},
		{"bool", iface.Bool, ptb.BoolArg{V: false}},
		{"u8", iface.U8, ptb.U8Arg{V: 1}},
		{"u16", iface.U16, ptb.U16Arg{V: 1}},
		{"u32", iface.U32, ptb.U32Arg{V: 1}},
		{"u64", iface.U64, ptb.U64Arg{V: 1}},
		{"address", iface.Address, ptb.AddressArg{V: addr}},
		{"vector<u8>", iface.Vector{Elem: iface.U8}, ptb.VectorU8HexArg{Hex: "0x01"}},
		{"vector<bool>", iface.Vector{Elem: iface.Bool}, ptb.VectorBoolArg{V: []bool{false}}},
		{"vector<u16>", iface.Vector{Elem: iface.U16}, ptb.VectorU16Arg{V: []uint16{1}}},
		{"vector<u32>", iface.Vector{Elem: iface.U32}, ptb.VectorU32Arg{V: []uint32{1}}},
		{"vector<u64>", iface.Vector{Elem: iface.U64}, ptb.VectorU64Arg{V: []uint64{1}}},
		{"vector<address>", iface.Vector{Elem: iface.Address}, ptb.VectorAddressArg{V: []string{addr}}},
		{"vector<vector<u8>>", iface.Vector{Elem: iface.Vector{Elem: iface.U8}}, nil},
		{"ref to u64", iface.Ref{To: iface.U64}, nil},
		{"user struct", iface.Datatype{Address: "0xabc", Module: "m", Name: "S"}, nil},
		{"u128", iface.Other{Tag: "u128"}, nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.DefaultArg(tt.in)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DefaultArg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultArg_Profile(t *testing.T) {
	p := chain.Sui()
	p.ClockID = "0x106"
	s := New(WithProfile(p))
	got, ok := s.DefaultArg(iface.Ref{To: fw("clock", "Clock")})
	require.True(t, ok)
	assert.Equal(t, ptb.SharedObject{ID: "0x106"}, got)
}

func TestStripTxContext(t *testing.T) {
	s := New()
	upper := iface.Ref{Mutable: true, To: iface.Datatype{Address: strings.ToUpper(framework), Module: "tx_context", Name: "TxContext"}}
	short := iface.Ref{Mutable: true, To: iface.Datatype{Address: "0x2", Module: "tx_context", Name: "TxContext"}}

	tests := []struct {
		name string
		in   []iface.Type
		want int
	}{
		{"empty", nil, 0},
		{"trailing mut ctx", []iface.Type{iface.U8, txCtx(true)}, 1},
		{"trailing ctx", []iface.Type{txCtx(false)}, 0},
		{"only one stripped", []iface.Type{txCtx(true), txCtx(true)}, 1},
		{"ctx not last", []iface.Type{txCtx(true), iface.U8}, 2},
		{"uppercase address", []iface.Type{upper}, 0},
		{"short address", []iface.Type{short}, 1},
		{"ctx by value", []iface.Type{fw("tx_context", "TxContext")}, 1},
		{"ctx without mutability", []iface.Type{iface.U8, iface.Ref{MutabilityUnknown: true, To: fw("tx_context", "TxContext")}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, s.StripTxContext(tt.in), tt.want)
		})
	}
}

func TestAnalyzeFunction(t *testing.T) {
	s := New()
	tests := []struct {
		name     string
		fn       iface.Function
		runnable bool
		reasons  []Reason
		nargs    int
	}{
		{
			name:     "entry with ctx",
			fn:       iface.Function{Visibility: iface.VisibilityPublic, IsEntry: true, Params: []iface.Type{iface.U64, iface.Ref{To: fw("clock", "Clock")}, txCtx(true)}},
			runnable: true,
			nargs:    2,
		},
		{
			name:    "friend",
			fn:      iface.Function{Visibility: iface.VisibilityFriend, IsEntry: true},
			reasons: []Reason{ReasonNotPublicEntry},
		},
		{
			name:    "public non-entry",
			fn:      iface.Function{Visibility: iface.VisibilityPublic},
			reasons: []Reason{ReasonNotPublicEntry},
		},
		{
			name:    "private with unsupported param",
			fn:      iface.Function{Visibility: iface.VisibilityPrivate, Params: []iface.Type{iface.Other{Tag: "signer"}}},
			reasons: []Reason{ReasonNotPublicEntry, ReasonUnsupportedParamType},
		},
		{
			name:    "two unsupported params record one reason",
			fn:      iface.Function{Visibility: iface.VisibilityPublic, IsEntry: true, Params: []iface.Type{iface.Other{Tag: "u128"}, iface.Other{Tag: "u256"}}},
			reasons: []Reason{ReasonUnsupportedParamType},
		},
		{
			name:     "no params",
			fn:       iface.Function{Visibility: iface.VisibilityPublic, IsEntry: true},
			runnable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.AnalyzeFunction(tt.fn)
			assert.Equal(t, tt.runnable, got.Runnable)
			assert.Equal(t, tt.reasons, got.Reasons)
			assert.Len(t, got.Args, tt.nargs)
			if !got.Runnable {
				assert.NotEmpty(t, got.Reasons)
			}
		})
	}
}

func TestAnalyzeFunction_TypeParamsFilled(t *testing.T) {
	s := New()
	got := s.AnalyzeFunction(iface.Function{
		Visibility: iface.VisibilityPublic,
		IsEntry:    true,
		TypeParams: []string{`{}`, `{}`},
		Params:     []iface.Type{iface.Bool},
	})
	require.True(t, got.Runnable)
	coin := framework + "::sui::SUI"
	assert.Equal(t, []string{coin, coin}, got.TypeArgs)
}

// Every runnable function is public entry and every remaining parameter has
// a default.
func TestAnalyzeFunction_RunnableImpliesSupported(t *testing.T) {
	s := New()
	params := []iface.Type{
		iface.Bool, iface.U8, iface.Address, iface.Other{Tag: "u128"},
		iface.Vector{Elem: iface.U64}, coinSUI(), txCtx(true), iface.Ref{To: fw("clock", "Clock")},
	}
	vis := []iface.Visibility{iface.VisibilityPublic, iface.VisibilityFriend, iface.VisibilityPrivate}
	for _, v := range vis {
		for _, entry := range []bool{true, false} {
			for i := range params {
				for j := range params {
					f := iface.Function{Visibility: v, IsEntry: entry, Params: []iface.Type{params[i], params[j]}}
					got := s.AnalyzeFunction(f)
					if !got.Runnable {
						continue
					}
					assert.True(t, f.PublicEntry())
					rest := s.StripTxContext(f.Params)
					assert.Len(t, got.Args, len(rest))
					for _, p := range rest {
						_, ok := s.DefaultArg(p)
						assert.True(t, ok, p.String())
					}
				}
			}
		}
	}
}

const pkgDoc = `{
  "package_id": "0xfeed",
  "modules": {
    "zeta": {"functions": {
      "a": {"visibility": "public", "is_entry": true, "type_params": [], "params": [{"kind": "u64"}]}
    }},
    "alpha": {"functions": {
      "mint": {"visibility": "public", "is_entry": true, "type_params": [], "params": [
        {"kind": "ref", "mutable": true, "to": {"kind": "datatype", "address": "0x0000000000000000000000000000000000000000000000000000000000000002", "module": "tx_context", "name": "TxContext", "type_args": []}}
      ]},
      "burn": {"visibility": "public", "is_entry": true, "type_params": [], "params": [{"kind": "bool"}]},
      "generic": {"visibility": "public", "is_entry": true, "type_params": [{"constraints": []}], "params": []},
      "helper": {"visibility": "public", "is_entry": false, "type_params": [], "params": []},
      "odd": {"visibility": "public", "is_entry": true, "type_params": [], "params": [{"kind": "u128"}, {"kind": "signer"}]}
    }}
  }
}`

func loadPkg(t *testing.T, doc string) *iface.Package {
	t.Helper()
	pkg, err := iface.Parse([]byte(doc))
	require.NoError(t, err)
	return pkg
}

func TestAnalyzePackage(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := New(WithLogger(zap.New(core)))

	got := s.AnalyzePackage(loadPkg(t, pkgDoc))
	assert.Equal(t, "0xfeed", got.PackageID)

	var targets []string
	for _, c := range got.Accepted {
		targets = append(targets, c.Target)
	}
	assert.Equal(t, []string{
		"0xfeed::alpha::burn",
		"0xfeed::alpha::generic",
		"0xfeed::alpha::mint",
		"0xfeed::zeta::a",
	}, targets)
	assert.Empty(t, got.Accepted[2].Args, "TxContext is stripped")

	assert.Equal(t, []Rejection{
		{Target: "0xfeed::alpha::helper", Reasons: []Reason{ReasonNotPublicEntry}},
		{Target: "0xfeed::alpha::odd", Reasons: []Reason{ReasonUnsupportedParamType}},
	}, got.Rejected)
	assert.Equal(t, Histogram{ReasonNotPublicEntry: 1, ReasonUnsupportedParamType: 1}, got.Histogram)
	assert.Equal(t, 2, logs.FilterMessage("function rejected").Len())
}

func TestAnalyzePackage_TxContextWithoutMutability(t *testing.T) {
	doc := `{"package_id": "0x1", "modules": {"m": {"functions": {
	  "f": {"visibility": "public", "is_entry": true, "type_params": [], "params": [
	    {"kind": "u64"},
	    {"kind": "ref", "to": {"kind": "datatype", "address": "0x0000000000000000000000000000000000000000000000000000000000000002", "module": "tx_context", "name": "TxContext", "type_args": []}}
	  ]}
	}}}}`
	got := New().AnalyzePackage(loadPkg(t, doc))
	require.Len(t, got.Accepted, 1)
	assert.Equal(t, "0x1::m::f", got.Accepted[0].Target)
	assert.Equal(t, []ptb.Arg{ptb.U64Arg{V: 1}}, got.Accepted[0].Args)
	assert.Empty(t, got.Rejected)
}

func TestAnalyzePackage_Invalid(t *testing.T) {
	s := New()
	got := s.AnalyzePackage(loadPkg(t, `{"package_id": "", "modules": 3}`))
	assert.Equal(t, iface.DefaultPackageID, got.PackageID)
	assert.Empty(t, got.Accepted)
	assert.Empty(t, got.Rejected)
	assert.Equal(t, Histogram{ReasonInterfaceInvalid: 1}, got.Histogram)
}

func TestAnalyzePackage_NoCandidates(t *testing.T) {
	s := New()
	got := s.AnalyzePackage(loadPkg(t, `{"package_id": "0x1", "modules": {"m": {"functions": {
		"f": {"visibility": "private", "is_entry": false, "params": []}
	}}}}`))
	assert.Equal(t, Histogram{ReasonNotPublicEntry: 1, ReasonNoCandidates: 1}, got.Histogram)

	empty := s.AnalyzePackage(loadPkg(t, `{"package_id": "0x1", "modules": {}}`))
	assert.Equal(t, Histogram{ReasonNoCandidates: 1}, empty.Histogram)
}

func TestAnalyzePackage_JSON(t *testing.T) {
	got := New().AnalyzePackage(loadPkg(t, pkgDoc))
	data, err := json.Marshal(got)
	require.NoError(t, err)

	var back struct {
		Summary  map[string]int `json:"reasons_summary"`
		Version  int            `json:"reasons_version"`
		Rejected []struct {
			Reasons []string `json:"reasons"`
		} `json:"candidates_rejected"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, map[string]int{"not_public_entry": 1, "unsupported_param_type": 1}, back.Summary)
	assert.Equal(t, []string{"not_public_entry"}, back.Rejected[0].Reasons)
	assert.Equal(t, ReasonVocabularyVersion, back.Version)

	var full PackageAnalysis
	require.NoError(t, json.Unmarshal(data, &full))
	assert.Equal(t, got.Histogram, full.Histogram)
}

func TestSelectPlan(t *testing.T) {
	s := New()
	pkg := loadPkg(t, pkgDoc)

	one := s.SelectPlan(pkg, 1)
	require.NotNil(t, one)
	require.Len(t, one.Calls, 1)
	assert.Equal(t, "0xfeed::alpha::burn", one.Calls[0].Target)
	assert.Equal(t, []ptb.Arg{ptb.BoolArg{V: false}}, one.Calls[0].Args)
	assert.Equal(t, []string{}, one.Calls[0].TypeArgs)

	all := s.SelectPlan(pkg, 10)
	require.NotNil(t, all)
	var targets []string
	for _, c := range all.Calls {
		targets = append(targets, c.Target)
	}
	assert.Equal(t, []string{"0xfeed::alpha::burn", "0xfeed::alpha::mint", "0xfeed::zeta::a"}, targets,
		"generic functions are skipped")
	assert.NoError(t, all.Validate())

	zero := s.SelectPlan(pkg, 0)
	require.NotNil(t, zero)
	assert.Len(t, zero.Calls, 1)
}

func TestSelectPlan_ThreeCandidatesCapOne(t *testing.T) {
	pkg := loadPkg(t, `{"package_id": "0x9", "modules": {
		"b": {"functions": {"x": {"visibility": "public", "is_entry": true, "params": []}}},
		"a": {"functions": {
			"z": {"visibility": "public", "is_entry": true, "params": []},
			"y": {"visibility": "public", "is_entry": true, "params": []}
		}}
	}}`)
	plan := New().SelectPlan(pkg, 1)
	require.NotNil(t, plan)
	require.Len(t, plan.Calls, 1)
	assert.Equal(t, "0x9::a::y", plan.Calls[0].Target)
}

func TestSelectPlan_None(t *testing.T) {
	s := New()
	assert.Nil(t, s.SelectPlan(loadPkg(t, `{"modules": {}}`), 1))
	assert.Nil(t, s.SelectPlan(loadPkg(t, `{"modules": null}`), 1))
}

func TestViability(t *testing.T) {
	s := New()
	v := s.Viability(loadPkg(t, pkgDoc))
	// public entry: a, mint, burn, generic, odd
	assert.Equal(t, Viability{PublicEntry: 5, NoTypeParams: 4, SupportedArgs: 3}, v)
	assert.GreaterOrEqual(t, v.PublicEntry, v.NoTypeParams)
	assert.GreaterOrEqual(t, v.NoTypeParams, v.SupportedArgs)

	assert.Equal(t, Viability{}, s.Viability(loadPkg(t, `[]`)))
}

func TestReasonVocabulary(t *testing.T) {
	for _, r := range Reasons() {
		text, err := r.MarshalText()
		require.NoError(t, err)
		var back Reason
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, r, back)
	}
	assert.Equal(t, "interface_missing_or_invalid", ReasonInterfaceInvalid.String())

	_, err := ParseReason("bogus")
	assert.Error(t, err)
	_, err = Reason(99).MarshalText()
	assert.Error(t, err)
}

func TestHistogram(t *testing.T) {
	h := Histogram{}
	h.Add(ReasonNoCandidates)
	h.Merge(Histogram{ReasonNoCandidates: 2, ReasonNotPublicEntry: 1})
	assert.Equal(t, map[string]int{"no_candidates": 3, "not_public_entry": 1}, h.Strings())
	assert.Equal(t, []Reason{ReasonNotPublicEntry, ReasonNoCandidates}, h.Keys())
}

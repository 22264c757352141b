package jsonextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeList(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"array", `["0x1::b::B", "0x1::a::A", "0x1::a::A", 3]`, []string{"0x1::a::A", "0x1::b::B"}},
		{"object", `{"key_types": ["0x2::coin::Coin"], "note": "x"}`, []string{"0x2::coin::Coin"}},
		{"fenced", "Here you go:\n```json\n[\"0x1::m::S\"]\n```\nthanks", []string{"0x1::m::S"}},
		{"fenced upper", "```JSON\n{\"key_types\": []}\n```", []string{}},
		{"bare fence", "```\n[\"0x1::m::S\"]```", []string{"0x1::m::S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeList(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeList_Errors(t *testing.T) {
	for _, text := range []string{
		`not json at all`,
		`{"types": []}`,
		`{"key_types": "0x1::m::S"}`,
		`"0x1::m::S"`,
		"```json\n{broken\n```",
	} {
		_, err := TypeList(text)
		assert.ErrorIs(t, err, ErrNoJSON, text)
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "[1]", StripFence("  [1] \n"))
	assert.Equal(t, "{}", StripFence("a ```json {} ``` b ```[2]```"))
}

package stage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

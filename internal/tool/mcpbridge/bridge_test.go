package mcpbridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-labs/finagent/internal/tool"
)

func TestConvertSchema_TopLevelProperties(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {
			"query":       {"type": "string", "description": "search terms"},
			"max_results": {"type": "integer"},
			"safe":        {"type": "boolean"},
			"region":      {"type": "string", "enum": ["us", "eu"]}
		},
		"required": ["query"]
	}`)

	schema := convertSchema(raw)
	require.Len(t, schema, 4)

	byName := make(map[string]tool.Param, len(schema))
	for _, p := range schema {
		byName[p.Name] = p
	}

	assert.Equal(t, tool.ParamString, byName["query"].Type)
	assert.True(t, byName["query"].Required)
	assert.Equal(t, "search terms", byName["query"].Description)

	assert.Equal(t, tool.ParamInteger, byName["max_results"].Type)
	assert.False(t, byName["max_results"].Required)

	assert.Equal(t, tool.ParamBoolean, byName["safe"].Type)
	assert.Equal(t, []string{"us", "eu"}, byName["region"].Enum)
}

func TestConvertSchema_EmptyOrMalformed(t *testing.T) {
	assert.Nil(t, convertSchema(nil))
	assert.Nil(t, convertSchema(json.RawMessage(`not json`)))
}

func TestMapJSONType_UnknownDefaultsToString(t *testing.T) {
	assert.Equal(t, tool.ParamString, mapJSONType("string"))
	assert.Equal(t, tool.ParamNumber, mapJSONType("number"))
	assert.Equal(t, tool.ParamArray, mapJSONType("array"))
	assert.Equal(t, tool.ParamObject, mapJSONType("object"))
	assert.Equal(t, tool.ParamString, mapJSONType("something_else"))
}

func TestAdapter_NamespacedName(t *testing.T) {
	a := &Adapter{serverName: "newswire", info: toolInfo{Name: "search"}}
	assert.Equal(t, "mcp_newswire__search", a.Name())
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(ServerConfig{Name: "newswire", Command: "/usr/bin/true"})

	_, err := c.ListTools(context.Background())
	require.Error(t, err)

	_, err = c.CallTool(context.Background(), "search", nil)
	require.Error(t, err)

	assert.NoError(t, c.Close(), "closing an unconnected client is a no-op")
}

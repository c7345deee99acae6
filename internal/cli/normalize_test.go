package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Text(t *testing.T) {
	payload := writeTempFile(t, "payload.json", userPayloadJSON)

	out, err := runCLI(t, "normalize", payload)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "entity table line plus result shape line")
	assert.Equal(t,
		`{"User:1":{"__typename":"User","friend":{"__ref":"User:2"},"id":"1","name":"Ada"},"User:2":{"__typename":"User","id":"2","name":"Bo"}}`,
		lines[0])
	assert.Equal(t, `{"__ref":"User:1"}`, lines[1])
}

func TestNormalize_JSON(t *testing.T) {
	payload := writeTempFile(t, "payload.json", userPayloadJSON)

	out, err := runCLI(t, "normalize", payload, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	entities, ok := data["entities"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, entities, 2)
	assert.Contains(t, entities, "User:1")
	assert.Contains(t, entities, "User:2")
	assert.Equal(t, map[string]any{"__ref": "User:1"}, data["result"])
}

func TestNormalize_YAMLPayload(t *testing.T) {
	payload := writeTempFile(t, "payload.yaml", `
__typename: User
id: "7"
name: Yaml
`)

	out, err := runCLI(t, "normalize", payload)
	require.NoError(t, err)
	assert.Contains(t, out, `"User:7"`)
}

func TestNormalize_WithPolicies(t *testing.T) {
	payload := writeTempFile(t, "payload.json",
		`{"__typename": "Product", "sku": "X9", "qty": 5}`)
	policies := writeTempFile(t, "policies.cue",
		`policies: Product: keyFields: ["sku"]`)

	out, err := runCLI(t, "normalize", payload, "--policies", policies)
	require.NoError(t, err)
	assert.Contains(t, out, `"Product:X9"`)
}

func TestNormalize_MissingFile(t *testing.T) {
	_, err := runCLI(t, "normalize", "/does/not/exist.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNormalize_BadJSON(t *testing.T) {
	payload := writeTempFile(t, "payload.json", `{"oops":`)

	_, err := runCLI(t, "normalize", payload)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

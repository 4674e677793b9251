package apq

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"query": "{ posts { id } }",
		"queryId": "AbC123",
		"operationName": "GetPosts",
		"variables": {"first": 10}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "{ posts { id } }", req.Query)
	assert.Equal(t, "AbC123", req.QueryID)
	assert.Equal(t, "AbC123", req.ID())
	assert.Equal(t, "GetPosts", req.Operation())
}

func TestParseRequestInvalidJSON(t *testing.T) {
	_, err := ParseRequest([]byte(`{not json`))
	assert.Error(t, err)
}

func TestRequestIDPrefersQueryID(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"queryId": "top-level",
		"extensions": {"persistedQuery": {"version": 1, "sha256Hash": "from-extension"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "top-level", req.ID())
}

func TestRequestIDFromApolloExtension(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"extensions": {"persistedQuery": {"version": 1, "sha256Hash": "deadbeef"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", req.ID())
}

func TestRequestOperationFallbacks(t *testing.T) {
	req, err := ParseRequest([]byte(`{"operation_name": "Bar"}`))
	require.NoError(t, err)
	assert.Equal(t, "Bar", req.Operation())

	req, err = ParseRequest([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultOperationName, req.Operation())
}

func TestMarshalStripsIDAndPreservesUnknownFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"query": "{ posts }",
		"queryId": "abc123",
		"operationName": "GetPosts",
		"variables": {"first": 10},
		"custom": "kept"
	}`))
	require.NoError(t, err)

	req.StripID()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, "{ posts }", out["query"])
	assert.Equal(t, "GetPosts", out["operationName"])
	assert.Equal(t, "kept", out["custom"])
	assert.Equal(t, map[string]any{"first": float64(10)}, out["variables"])
	assert.NotContains(t, out, "queryId")
}

func TestStripIDRemovesPersistedQueryExtensionOnly(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"extensions": {
			"persistedQuery": {"version": 1, "sha256Hash": "deadbeef"},
			"tracing": {"version": 1}
		}
	}`))
	require.NoError(t, err)

	req.StripID()
	req.Query = "{ posts }"

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))

	extensions, ok := out["extensions"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, extensions, "persistedQuery")
	assert.Contains(t, extensions, "tracing")
}

func TestMarshalDropsEmptyExtensions(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"query": "{ posts }",
		"extensions": {"persistedQuery": {"version": 1, "sha256Hash": "deadbeef"}}
	}`))
	require.NoError(t, err)

	req.StripID()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotContains(t, out, "extensions")
}

func TestRequestFromValues(t *testing.T) {
	values := url.Values{}
	values.Set("queryId", "AbC123")
	values.Set("operation_name", "Bar")

	req, err := RequestFromValues(values)
	require.NoError(t, err)
	assert.Equal(t, "AbC123", req.ID())
	assert.Equal(t, "Bar", req.Operation())
}

func TestRequestFromValuesApolloExtensions(t *testing.T) {
	values := url.Values{}
	values.Set("extensions", `{"persistedQuery":{"version":1,"sha256Hash":"deadbeef"}}`)

	req, err := RequestFromValues(values)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", req.ID())

	values.Set("extensions", `{broken`)
	_, err = RequestFromValues(values)
	assert.Error(t, err)
}

func TestApplyToValues(t *testing.T) {
	values := url.Values{}
	values.Set("queryId", "abc123")
	values.Set("variables", `{"first":10}`)

	req, err := RequestFromValues(values)
	require.NoError(t, err)

	req.Query = "{ posts }"
	req.StripID()
	require.NoError(t, req.ApplyToValues(values))

	assert.Equal(t, "{ posts }", values.Get("query"))
	assert.Empty(t, values.Get("queryId"))
	assert.Equal(t, `{"first":10}`, values.Get("variables"))
}

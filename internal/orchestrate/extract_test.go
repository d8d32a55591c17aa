package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDirectJSON(t *testing.T) {
	v, err := Extract(`[{"role":"CEO","priority":1}]`)
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	obj := arr[0].(map[string]any)
	assert.Equal(t, "CEO", obj["role"])
}

func TestExtractMarkdownFenced(t *testing.T) {
	raw := "Here is the result you asked for:\n```json\n[{\"role\": \"CTO\", \"priority\": 1}]\n```\nLet me know if you need anything else!"
	v, err := Extract(raw)
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	assert.Equal(t, "CTO", arr[0].(map[string]any)["role"])
}

func TestExtractRoundTripsEmbeddedValue(t *testing.T) {
	// A well-formed value wrapped in fences and prose must come back
	// deep-equal to the original.
	wrapped := "Sure! ```json\n{\"a\": [1, 2, {\"b\": \"c\"}], \"d\": null}\n``` hope that helps"
	v, err := Extract(wrapped)
	require.NoError(t, err)
	want := map[string]any{
		"a": []any{float64(1), float64(2), map[string]any{"b": "c"}},
		"d": nil,
	}
	assert.Equal(t, want, v)
}

func TestExtractTrailingCommas(t *testing.T) {
	v, err := Extract(`[{"role":"CEO","priority":1,},]`)
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestExtractTrailingCommaInsideStringPreserved(t *testing.T) {
	v, err := Extract(`{"note":"a, ] b"}`)
	require.NoError(t, err)
	obj := v.(map[string]any)
	assert.Equal(t, "a, ] b", obj["note"])
}

func TestExtractWholeTextJSON(t *testing.T) {
	v, err := Extract(`"Healthcare"`)
	require.NoError(t, err)
	assert.Equal(t, "Healthcare", v)
}

func TestExtractBareScalar(t *testing.T) {
	v, err := Extract("Healthcare")
	require.NoError(t, err)
	assert.Equal(t, "Healthcare", v)
}

func TestExtractBareScalarQuoted(t *testing.T) {
	v, err := Extract(`  'Healthcare'  `)
	require.NoError(t, err)
	assert.Equal(t, "Healthcare", v)
}

func TestExtractScalarWithJSONWord(t *testing.T) {
	// The literal word "json" is stripped during fence cleanup.
	v, err := Extract("```json\nHealthcare\n```")
	require.NoError(t, err)
	assert.Equal(t, "Healthcare", v)
}

func TestExtractFailure(t *testing.T) {
	_, err := Extract("{this is not json and never will be")
	require.Error(t, err)

	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Preview, "this is not json")
}

func TestExtractFailurePreviewTruncated(t *testing.T) {
	long := "{" + string(make([]byte, 500))
	_, err := Extract(long)
	require.Error(t, err)

	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.LessOrEqual(t, len(exErr.Preview), previewLen+3)
}

func TestExtractEmptyInput(t *testing.T) {
	_, err := Extract("")
	assert.Error(t, err)

	_, err = Extract("   \n  ")
	assert.Error(t, err)
}

func TestExtractPrefersArrayOverObject(t *testing.T) {
	// When both bracket kinds appear, the span that opens first wins.
	v, err := Extract(`The list [1,2,3] beats the object {"a":1} here`)
	require.NoError(t, err)
	_, isArray := v.([]any)
	assert.True(t, isArray)
}

func TestExtractObjectContainingArray(t *testing.T) {
	// An object wrapping an array must come back as the whole object,
	// not the inner array.
	raw := "Here you go:\n```json\n{\"roles\": [{\"role\": \"CEO\"}], \"count\": 1}\n```\nAnything else?"
	v, err := Extract(raw)
	require.NoError(t, err)

	want := map[string]any{
		"roles": []any{map[string]any{"role": "CEO"}},
		"count": float64(1),
	}
	assert.Equal(t, want, v)
}

func TestExtractFallsBackToSecondBracketKind(t *testing.T) {
	// The first-opening span is malformed; the later array still parses.
	v, err := Extract(`{broken object then [1,2,3]`)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, v)
}

func TestStripTrailingCommas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`[1,2,]`, `[1,2]`},
		{`{"a":1,}`, `{"a":1}`},
		{`{"a":1,  }`, `{"a":1}`},
		{`{"a":"x,]"}`, `{"a":"x,]"}`},
		{`[1,2]`, `[1,2]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripTrailingCommas(tt.in))
	}
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionResponse_ParsesWellFormedArray(t *testing.T) {
	got := parseExtractionResponse(`[{"content": "likes coffee", "category": "preference", "importance": 3}]`)
	require.Len(t, got, 1)
	assert.Equal(t, "likes coffee", got[0].Content)
	assert.Equal(t, "preference", got[0].Category)
	assert.Equal(t, 3, got[0].Importance)
}

func TestParseExtractionResponse_ClampsImportanceToFivePointRange(t *testing.T) {
	got := parseExtractionResponse(`[{"content": "a", "category": "fact", "importance": 99}, {"content": "b", "category": "fact", "importance": -5}]`)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Importance)
	assert.Equal(t, 1, got[1].Importance)
}

func TestParseExtractionResponse_AcceptsQuotedNumericImportance(t *testing.T) {
	got := parseExtractionResponse(`[{"content": "a", "category": "fact", "importance": "4"}]`)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Importance)
}

func TestParseExtractionResponse_DropsRecordsMissingRequiredKeys(t *testing.T) {
	got := parseExtractionResponse(`[{"content": "a", "importance": 3}, {"content": "b", "category": "fact", "importance": 3}]`)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Content)
}

func TestParseExtractionResponse_EmptyArrayIsNil(t *testing.T) {
	assert.Nil(t, parseExtractionResponse(`[]`))
}

func TestParseExtractionResponse_NoBracketsIsNil(t *testing.T) {
	assert.Nil(t, parseExtractionResponse(`sorry, nothing to extract`))
}

func TestParseExtractionResponse_MalformedJSONIsNil(t *testing.T) {
	assert.Nil(t, parseExtractionResponse(`[{"content": "a", oops}]`))
}

func TestParseExtractionResponse_IgnoresSurroundingProse(t *testing.T) {
	got := parseExtractionResponse("Sure, here you go:\n[{\"content\": \"a\", \"category\": \"fact\", \"importance\": 2}]\nHope that helps!")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Content)
}

func TestExtract_DegradesToEmptyOnUnparseableResponse(t *testing.T) {
	e := NewExtractor(newTestRouter(t, "not json at all"))
	got := e.Extract(context.Background(), "I love hiking", nil)
	assert.Nil(t, got)
}

func TestExtract_ReturnsParsedRecordsOnSuccess(t *testing.T) {
	e := NewExtractor(newTestRouter(t, `[{"content": "loves hiking", "category": "preference", "importance": 4}]`))
	got := e.Extract(context.Background(), "I love hiking", map[string]string{"name": "Alex"})
	require.Len(t, got, 1)
	assert.Equal(t, "loves hiking", got[0].Content)
}

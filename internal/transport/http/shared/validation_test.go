package shared

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type criterionPayload struct {
	Name      string  `json:"name" validate:"required"`
	Weight    float64 `json:"weight" validate:"gte=0,lte=100"`
	Direction string  `json:"direction" validate:"required,oneof=higher_is_better lower_is_better"`
}

type importPayload struct {
	Scores []criterionPayload `json:"scores" validate:"required,min=1,dive"`
}

func TestStructUsesJSONNames(t *testing.T) {
	v := NewValidator()
	v.Struct("", criterionPayload{Weight: 120, Direction: "sideways"})

	issues := v.Issues()
	require.Len(t, issues, 3)
	assert.Equal(t, ValidationIssue{Field: "direction", Reason: "must be one of: higher_is_better, lower_is_better"}, issues[0])
	assert.Equal(t, "name", issues[1].Field)
	assert.Equal(t, "weight", issues[2].Field)
}

func TestStructNestedPaths(t *testing.T) {
	v := NewValidator()
	v.Struct("", importPayload{Scores: []criterionPayload{{Name: "ok", Direction: "higher_is_better"}, {Direction: "higher_is_better"}}})

	issues := v.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "scores[1].name", issues[0].Field)
}

func TestRejectWritesValidationEnvelope(t *testing.T) {
	v := NewValidator()
	v.Required("period", " ", "is required")
	rec := httptest.NewRecorder()
	require.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Equal(t, "period", env.Error.Details.Fields[0].Field)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst criterionPayload
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"a","extra":1}`))
	rec := httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, req, &dst, "req"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"a"}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), req, &dst, "req"))
	assert.Equal(t, "a", dst.Name)
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=20", nil)
	p := ParsePagination(req, 50, 200)
	assert.Equal(t, Pagination{Limit: 200, Offset: 20}, p)

	req = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	assert.Equal(t, Pagination{Limit: 50, Offset: 0}, ParsePagination(req, 50, 200))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	assert.Equal(t, "10.0.0.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestParseTimeParam(t *testing.T) {
	got, err := ParseTimeParam("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseTimeParam("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Day())

	got, err = ParseTimeParam("2024-03-05T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = ParseTimeParam("yesterday")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

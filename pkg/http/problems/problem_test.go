package problems

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	// Given
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/admin/newsletters", nil)
	p := BadRequest("title is required")
	p.Errors = []FieldError{{Field: "title", Message: "is required"}}

	// When
	Write(w, r, p)

	// Then
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ContentType, w.Header().Get("Content-Type"))

	var got Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Bad Request", got.Title)
	assert.Equal(t, "title is required", got.Detail)
	assert.Equal(t, "/admin/newsletters", got.Instance)
	assert.Empty(t, got.TraceID)
	assert.Equal(t, []FieldError{{Field: "title", Message: "is required"}}, got.Errors)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("").Status)
	assert.Equal(t, http.StatusConflict, Conflict("").Status)
	assert.Equal(t, http.StatusInternalServerError, Internal("").Status)
	assert.Equal(t, "Gateway Timeout", GatewayTimeout("").Title)
}

package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetward/fleetward/internal/api/response"
)

func TestJSON_WrapsInDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, map[string]string{"name": "acme"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "acme", body["data"]["name"])
}

func TestCollection_IncludesMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Collection(rec, []int{1, 2, 3}, response.NewMeta(1, 3, 10))

	var body struct {
		Data []int `json:"data"`
		Meta struct {
			Page    int  `json:"page"`
			Limit   int  `json:"limit"`
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{1, 2, 3}, body.Data)
	assert.Equal(t, 10, body.Meta.Total)
	assert.True(t, body.Meta.HasNext)
}

func TestNewMeta_NormalizesPageInputs(t *testing.T) {
	meta := response.NewMeta(0, 0, 5)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.False(t, meta.HasNext)

	meta = response.NewMeta(2, 20, 100)
	assert.True(t, meta.HasNext)

	meta = response.NewMeta(5, 20, 100)
	assert.False(t, meta.HasNext)
}

func TestError_StableShape(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusNotFound, response.CodeNotFound, "Resource not found", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "Resource not found", body.Error.Message)
}

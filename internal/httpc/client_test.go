package httpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"focal_length":800}`))
	}))
	defer srv.Close()

	var got struct {
		FocalLength float64 `json:"focal_length"`
	}
	require.NoError(t, GetJSON(context.Background(), srv.URL, &got))
	assert.Equal(t, 800.0, got.FocalLength)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]any{"echo": in["class"]})
	}))
	defer srv.Close()

	var got map[string]string
	require.NoError(t, PostJSON(context.Background(), srv.URL, map[string]string{"class": "cup"}, &got))
	assert.Equal(t, "cup", got["echo"])

	require.NoError(t, PostJSON(context.Background(), srv.URL, map[string]string{}, nil))
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown class"}` + "\n"))
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, `{"error":"unknown class"}`, se.Body)
}

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGetAndDelete(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte("raw bytes"))
		case http.MethodDelete:
			deleted = true
		}
	}))
	defer srv.Close()

	tr := NewHTTP(5 * time.Second)
	body, err := tr.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(body))

	require.NoError(t, tr.Delete(context.Background(), srv.URL))
	assert.True(t, deleted)
}

func TestHTTPPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		data, _ := io.ReadAll(r.Body)
		var in map[string]string
		require.NoError(t, json.Unmarshal(data, &in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := NewHTTP(0).PostJSON(context.Background(), srv.URL, map[string]string{"name": "a.txt"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", out["echo"])
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such file", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTP(0).Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "no such file", se.Body)
	assert.Equal(t, http.MethodGet, se.Method)
}

func TestHTTPDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	var v map[string]interface{}
	err := NewHTTP(0).GetJSON(context.Background(), srv.URL, &v)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

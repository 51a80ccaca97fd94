package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstalledModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest","size":4661224676,"digest":"abc"},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	got, err := NewInferenceClient(srv.URL+"/").InstalledModels(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "llama3:latest", got[0].Name)
	assert.Equal(t, int64(4661224676), got[0].Size)
	assert.Equal(t, "mistral:7b", got[1].Name)
}

func TestInstalledModelsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewInferenceClient(srv.URL).InstalledModels(context.Background())
	assert.Error(t, err)

	var nilClient *InferenceClient
	_, err = nilClient.InstalledModels(context.Background())
	assert.ErrorIs(t, err, ErrInferenceUnavailable)
}

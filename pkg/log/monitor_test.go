package log

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLogRemoteService(t *testing.T, url string) {
	prev := config.ConfigGlobal.LogRemoteService
	config.ConfigGlobal.LogRemoteService = url
	t.Cleanup(func() { config.ConfigGlobal.LogRemoteService = prev })
}

func TestMonitorPost(t *testing.T) {
	var gotPath, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotBody = string(body)
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()
	setLogRemoteService(t, srv.URL)

	require.NoError(t, NewMonitor().Post([]byte(`[{"msg":"epoch 1/5"}]`), logPath))
	assert.Equal(t, "/collect/log", gotPath)
	assert.Equal(t, `[{"msg":"epoch 1/5"}]`, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestMonitorPostCollectorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collector down", http.StatusInternalServerError)
	}))
	defer srv.Close()
	setLogRemoteService(t, srv.URL)

	err := NewMonitor().Post([]byte("[]"), logPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "log collector")
}

package log

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
)

var monitor = NewMonitor()

const monitorTimeout = 2 * time.Second

// Monitor ship log batches to the remote collector
type Monitor struct {
	client *http.Client
}

func NewMonitor() *Monitor {
	return &Monitor{
		client: &http.Client{Timeout: monitorTimeout},
	}
}

func (m *Monitor) Post(body []byte, path string) error {
	url := fmt.Sprintf("%s/%s", config.ConfigGlobal.LogRemoteService, path)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("log collector returned %s", resp.Status)
	}
	return nil
}

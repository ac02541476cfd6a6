package handler

import (
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/gin-gonic/gin"
)

// Metadata distribution metadata merged with CONTAINER_* env variables under
// their suffix names
// (GET /metadata)
func (h *Handler) Metadata(c *gin.Context) {
	meta := map[string]string{
		"Name":      "image-classifier-api",
		"Version":   buildVersion(),
		"Summary":   "Serving and training API wrapper around a transfer-learning image classifier",
		"Home-page": "https://github.com/deepserve/image-classifier-api",
		"Author":    "",
		"License":   "Apache-2.0",
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, config.CONTAINER_PREFIX) {
			continue
		}
		suffix := strings.TrimPrefix(name, config.CONTAINER_PREFIX)
		if suffix != "" {
			meta[suffix] = value
		}
	}
	c.JSON(http.StatusOK, meta)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

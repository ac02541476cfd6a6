package handler

import (
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func getBindResult(c *gin.Context, in interface{}) error {
	if err := binding.JSON.Bind(c.Request, in); err != nil {
		return err
	}
	return nil
}

// handleError translate a typed api error into the client response. Errors
// without a kind are internal.
func handleError(c *gin.Context, err error) {
	apiErr, ok := apierror.AsError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	c.JSON(http.StatusBadRequest, apiErr)
}

// spoolUploads write uploaded files to temp files for the prediction
// pipeline, which removes them after inference. On error the files written so
// far are removed here.
func spoolUploads(c *gin.Context, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(file.Filename))
		if err != nil {
			removeFiles(paths)
			return nil, err
		}
		tmp.Close()
		if err := c.SaveUploadedFile(file, tmp.Name()); err != nil {
			os.Remove(tmp.Name())
			removeFiles(paths)
			return nil, err
		}
		paths = append(paths, tmp.Name())
	}
	return paths, nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

package handler

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/stretchr/testify/assert"
)

func fileHeaders(names ...string) []*multipart.FileHeader {
	files := make([]*multipart.FileHeader, 0, len(names))
	for _, name := range names {
		files = append(files, &multipart.FileHeader{Filename: name})
	}
	return files
}

func TestValidateFiles(t *testing.T) {
	// Test empty query.
	err := validateFiles(nil)
	apiErr, ok := apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.EmptyQuery, apiErr.Kind)

	// Test the allow-list accepts both cases.
	assert.NoError(t, validateFiles(fileHeaders("a.png", "b.jpg", "c.jpeg", "d.PNG", "e.JPG", "f.JPEG")))

	// Test the allow-list is case-sensitive, mixed case rejected.
	err = validateFiles(fileHeaders("a.Png"))
	apiErr, ok = apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.UnsupportedExtension, apiErr.Kind)

	// Test one bad file fails the whole batch.
	err = validateFiles(fileHeaders("a.png", "b.gif"))
	apiErr, ok = apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.UnsupportedExtension, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "b.gif")
}

func TestValidateURLs(t *testing.T) {
	h := &Handler{httpClient: http.DefaultClient}

	// Test empty query.
	err := h.validateURLs(nil)
	apiErr, ok := apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.EmptyQuery, apiErr.Kind)

	// Test an image content type passes.
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer imgSrv.Close()
	assert.NoError(t, h.validateURLs([]string{imgSrv.URL}))

	// Test a non-image content type is rejected.
	htmlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer htmlSrv.Close()
	err = h.validateURLs([]string{htmlSrv.URL})
	apiErr, ok = apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.NotAnImage, apiErr.Kind)

	// Test an unreachable url is rejected.
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadSrv.Close()
	err = h.validateURLs([]string{deadSrv.URL})
	apiErr, ok = apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.UnreachableUrl, apiErr.Kind)
}

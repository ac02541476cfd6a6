package handler

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
)

// allowedExtensions case-sensitive upload extension allow-list
var allowedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {},
	"PNG": {}, "JPG": {}, "JPEG": {},
}

// validateURLs reject malformed url queries before any model work. Each url
// is probed with a metadata-only request, the content type's primary type
// must be image.
func (h *Handler) validateURLs(urls []string) error {
	if len(urls) == 0 {
		return apierror.New(apierror.EmptyQuery, "empty query, provide at least one image url")
	}
	for _, u := range urls {
		resp, err := h.httpClient.Head(u)
		if err != nil {
			return apierror.New(apierror.UnreachableUrl,
				"failed url connection, check you wrote the url address correctly: %s", u)
		}
		contentType := resp.Header.Get("Content-Type")
		resp.Body.Close()
		if strings.Split(contentType, "/")[0] != "image" {
			return apierror.New(apierror.NotAnImage,
				"url %s is not in an image format, check you didn't upload a preview of the image rather than the image itself", u)
		}
	}
	return nil
}

// validateFiles reject malformed file queries before any model work
func validateFiles(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return apierror.New(apierror.EmptyQuery, "empty query, provide at least one image file")
	}
	for _, f := range files {
		ext := strings.TrimPrefix(filepath.Ext(filepath.Base(f.Filename)), ".")
		if _, ok := allowedExtensions[ext]; !ok {
			return apierror.New(apierror.UnsupportedExtension,
				"file %s is not in a standard image format (png, jpg, jpeg, PNG, JPG, JPEG)", f.Filename)
		}
	}
	return nil
}

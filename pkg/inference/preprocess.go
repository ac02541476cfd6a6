package inference

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/nfnt/resize"
)

var httpClient = &http.Client{Timeout: config.HTTPTIMEOUT}

// fetchToTemp download a url body into a temporary file, caller removes it
func fetchToTemp(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	f, err := os.CreateTemp("", "predict-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// loadViews decode an image file into one or more model-consumable views.
// With multicrop enabled it emits the four corner crops plus the center crop,
// otherwise a single resized view.
func loadViews(path string, imageSize int, multicrop bool, mode string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if !multicrop {
		resized := resize.Resize(uint(imageSize), uint(imageSize), img, resize.Lanczos3)
		return [][]float32{toTensor(resized, imageSize, mode)}, nil
	}

	// oversize by 1/4 then cut five crops
	scaled := resize.Resize(uint(imageSize+imageSize/4), uint(imageSize+imageSize/4), img, resize.Lanczos3)
	w := scaled.Bounds().Dx()
	h := scaled.Bounds().Dy()
	offsets := []image.Point{
		{0, 0},
		{w - imageSize, 0},
		{0, h - imageSize},
		{w - imageSize, h - imageSize},
		{(w - imageSize) / 2, (h - imageSize) / 2},
	}
	views := make([][]float32, 0, len(offsets))
	for _, off := range offsets {
		views = append(views, cropTensor(scaled, off, imageSize, mode))
	}
	return views, nil
}

// toTensor fill a NHWC float32 buffer with backbone-specific normalization
func toTensor(img image.Image, imageSize int, mode string) []float32 {
	return cropTensor(img, image.Point{}, imageSize, mode)
}

func cropTensor(img image.Image, origin image.Point, imageSize int, mode string) []float32 {
	data := make([]float32, imageSize*imageSize*3)
	base := img.Bounds().Min
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			r, g, b, _ := img.At(base.X+origin.X+x, base.Y+origin.Y+y).RGBA()
			// 16-bit channel to 0..255
			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)
			idx := (y*imageSize + x) * 3
			data[idx], data[idx+1], data[idx+2] = normalize(rf, gf, bf, mode)
		}
	}
	return data
}

// normalize per-backbone input scaling. The mode table lives in the training
// parameter schema next to the backbone choices.
func normalize(r, g, b float32, mode string) (float32, float32, float32) {
	switch mode {
	case "torch":
		return (r/255 - 0.485) / 0.229, (g/255 - 0.456) / 0.224, (b/255 - 0.406) / 0.225
	case "caffe":
		// channel order flipped to BGR, imagenet means subtracted
		return b - 103.939, g - 116.779, r - 123.68
	default: // tf
		return r/127.5 - 1, g/127.5 - 1, b/127.5 - 1
	}
}

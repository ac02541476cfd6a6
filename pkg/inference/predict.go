package inference

import (
	"os"
	"sort"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/deepserve/image-classifier-api/pkg/models"
	"github.com/sirupsen/logrus"
)

// TopK number of highest-probability classes returned per prediction
const TopK = 5

type Mode string

const (
	ModeURL   Mode = "url"
	ModeLocal Mode = "local"
)

// Predict turn raw inputs (urls or local file paths) into ranked
// label/probability pairs. Inputs are processed sequentially, one view at a
// time. With merge enabled the probability vectors of all views of one input
// are averaged before ranking, otherwise every view yields its own ranked
// run. Local files and url downloads are removed on every exit path. Any
// failure aborts the whole batch.
func (s *State) Predict(inputs []string, mode Mode, merge bool) (*models.PredictResponse, error) {
	if mode == ModeLocal {
		defer removeAll(inputs)
	}
	if err := s.acquireLoaded(); err != nil {
		return nil, apierror.Wrap(err)
	}
	defer s.mu.RUnlock()

	resp := &models.PredictResponse{Status: "ok", Predictions: []models.Prediction{}}
	for _, input := range inputs {
		path := input
		if mode == ModeURL {
			tmp, err := fetchToTemp(input)
			if err != nil {
				return nil, apierror.Wrap(err)
			}
			path = tmp
		}
		runs, err := s.predictFile(path, merge)
		if mode == ModeURL {
			os.Remove(path)
		}
		if err != nil {
			return nil, apierror.Wrap(err)
		}
		for _, probs := range runs {
			resp.Predictions = append(resp.Predictions, s.rank(probs)...)
		}
	}
	return resp, nil
}

// predictFile infer all views of one decoded input. Caller holds the read
// lock.
func (s *State) predictFile(path string, merge bool) ([][]float32, error) {
	views, err := loadViews(path, s.conf.ImageSize(), s.conf.UseMulticrop(), s.conf.PreprocessMode())
	if err != nil {
		return nil, err
	}
	runs := make([][]float32, 0, len(views))
	for _, view := range views {
		probs, err := s.runner.Infer(view)
		if err != nil {
			return nil, err
		}
		runs = append(runs, probs)
	}
	if merge && len(runs) > 1 {
		runs = [][]float32{average(runs)}
	}
	return runs, nil
}

// rank the top-K label ids by descending probability, ties broken by class
// index order. Caller holds the read lock.
func (s *State) rank(probs []float32) []models.Prediction {
	ids := make([]int, len(probs))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return probs[ids[a]] > probs[ids[b]]
	})
	k := TopK
	if len(ids) < k {
		k = len(ids)
	}
	preds := make([]models.Prediction, 0, k)
	for _, id := range ids[:k] {
		name := s.classNames[id]
		preds = append(preds, models.Prediction{
			LabelId:     id,
			Label:       name,
			Probability: float64(probs[id]),
			Info: models.PredictionInfo{
				Links: models.Links{
					GoogleImages: GoogleImagesLink(name),
					Wikipedia:    WikipediaLink(name),
				},
				Metadata: s.classInfo[id],
			},
		})
	}
	return preds
}

func average(runs [][]float32) []float32 {
	avg := make([]float32, len(runs[0]))
	for _, probs := range runs {
		for i, p := range probs {
			avg[i] += p
		}
	}
	for i := range avg {
		avg[i] /= float32(len(runs))
	}
	return avg
}

func removeAll(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("remove temp file %s: %v", f, err)
		}
	}
}

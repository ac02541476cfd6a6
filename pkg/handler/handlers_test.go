package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/inference"
	"github.com/deepserve/image-classifier-api/pkg/models"
	"github.com/deepserve/image-classifier-api/pkg/module"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/deepserve/image-classifier-api/pkg/trainconfig"
	"github.com/deepserve/image-classifier-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	launched  chan string
	cancelled chan string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		launched:  make(chan string, 4),
		cancelled: make(chan string, 4),
	}
}

func (f *fakeLauncher) Launch(jobId string) { f.launched <- jobId }
func (f *fakeLauncher) Cancel(jobId string) { f.cancelled <- jobId }

type testEnv struct {
	router   *gin.Engine
	launcher *fakeLauncher
	jobStore datastore.Datastore
	resolver *paths.Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)
	cfg := datastore.NewSQLiteConfig(datastore.KJobTableName)
	cfg.DBName = ":memory:"
	jobStore := datastore.NewSQLiteDatastore(cfg)
	t.Cleanup(func() { jobStore.Close() })

	resolver := paths.NewResolver(t.TempDir())
	state := inference.NewStateWithFactory(resolver,
		func(string, int, int) (inference.Runner, error) {
			return nil, errors.New("no runtime in tests")
		})
	launcher := newFakeLauncher()
	listenTask := module.NewListenDbTask(1, jobStore)
	t.Cleanup(listenTask.Close)
	h := NewHandler(state, jobStore, launcher, listenTask, resolver)

	router := gin.New()
	RegisterHandlers(router, h)
	return &testEnv{router: router, launcher: launcher, jobStore: jobStore, resolver: resolver}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestTrain(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/train", map[string]string{"epochs": "5", "modelname": `"ResNet50"`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.TrainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobId)
	assert.Equal(t, config.JOB_QUEUE, resp.Status)

	// The launcher receives the job.
	select {
	case jobId := <-env.launcher.launched:
		assert.Equal(t, resp.JobId, jobId)
	case <-time.After(2 * time.Second):
		t.Fatal("launcher was not invoked")
	}

	// A queued job row exists and carries the merged configuration.
	row, err := env.jobStore.Get(resp.JobId, []string{datastore.KJobStatus, datastore.KJobCancel,
		datastore.KJobConfig})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, config.JOB_QUEUE, row[datastore.KJobStatus])
	assert.EqualValues(t, config.CANCEL_INVALID, row[datastore.KJobCancel])

	var rowConf trainconfig.Conf
	require.NoError(t, json.Unmarshal([]byte(row[datastore.KJobConfig].(string)), &rowConf))
	assert.Equal(t, "ResNet50", rowConf["model"]["modelname"])
	assert.EqualValues(t, 5, rowConf["training"]["epochs"])

	// The merged configuration is persisted into the fresh snapshot.
	assert.True(t, utils.FileExists(env.resolver.ConfFile(resp.JobId)))
	conf, err := trainconfig.Load(env.resolver.ConfFile(resp.JobId))
	require.NoError(t, err)
	assert.EqualValues(t, 5, conf["training"]["epochs"])
	assert.Equal(t, "ResNet50", conf["model"]["modelname"])
}

func TestTrainUnknownParam(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/train", map[string]string{"learning_rate": "0.1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown training parameter")
	assert.Empty(t, env.launcher.launched)
}

func TestTrainRejectedValue(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/train", map[string]string{"modelname": `"LeNet5"`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "modelname")
	assert.Empty(t, env.launcher.launched)
}

func TestTrainParams(t *testing.T) {
	env := newTestEnv(t)
	w := env.get("/train/params")
	require.Equal(t, http.StatusOK, w.Code)

	var params map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	require.Contains(t, params, "modelname")
	assert.Equal(t, `"Xception"`, params["modelname"]["default"])
	assert.Equal(t, false, params["modelname"]["required"])
	assert.Contains(t, params, "epochs")
	assert.Contains(t, params, "use_multicrop")
}

func TestGetJob(t *testing.T) {
	env := newTestEnv(t)

	// Unknown jobs are 404.
	w := env.get("/train/jobs/2023-01-01_000000")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, env.jobStore.Put("2023-01-01_000000", map[string]interface{}{
		datastore.KJobStatus:     config.JOB_INPROGRESS,
		datastore.KJobProgress:   "epoch 3/15",
		datastore.KJobError:      "",
		datastore.KJobCancel:     config.CANCEL_INVALID,
		datastore.KJobCreateTime: "1672531200",
		datastore.KJobModifyTime: "1672531260",
	}))
	w = env.get("/train/jobs/2023-01-01_000000")
	require.Equal(t, http.StatusOK, w.Code)

	var status models.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "2023-01-01_000000", status.JobId)
	assert.Equal(t, config.JOB_INPROGRESS, status.Status)
	assert.Equal(t, "epoch 3/15", status.Progress)
}

func TestCancelJob(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON(t, "/train/jobs/2023-01-01_000000/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, env.jobStore.Put("2023-01-01_000000", map[string]interface{}{
		datastore.KJobStatus:     config.JOB_INPROGRESS,
		datastore.KJobProgress:   "",
		datastore.KJobError:      "",
		datastore.KJobCancel:     config.CANCEL_INVALID,
		datastore.KJobCreateTime: "1672531200",
		datastore.KJobModifyTime: "1672531200",
	}))
	w = env.postJSON(t, "/train/jobs/2023-01-01_000000/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The cancel flag is set, the db listener does the rest.
	row, err := env.jobStore.Get("2023-01-01_000000", []string{datastore.KJobCancel})
	require.NoError(t, err)
	assert.EqualValues(t, config.CANCEL_VALID, row[datastore.KJobCancel])
}

func TestListModels(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/models")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"snapshots":[]}`, w.Body.String())

	require.NoError(t, env.resolver.CreateSnapshotDirs("2023-01-01_000000"))
	require.NoError(t, writeFile(env.resolver.CheckpointFile("2023-01-01_000000", "final_model.onnx")))
	w = env.get("/models")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Snapshots []models.SnapshotInfo `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Snapshots, 1)
	assert.Equal(t, "2023-01-01_000000", resp.Snapshots[0].Timestamp)
	assert.Equal(t, []string{"final_model.onnx"}, resp.Snapshots[0].Checkpoints)
	assert.False(t, resp.Snapshots[0].Active)
}

func TestPredictUrlEmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/predict/url", models.PredictUrlRequest{Urls: []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EmptyQuery")
}

func TestMetadata(t *testing.T) {
	t.Setenv("CONTAINER_API_VERSION", "2.1.0")
	env := newTestEnv(t)
	w := env.get("/metadata")
	require.Equal(t, http.StatusOK, w.Code)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "image-classifier-api", meta["Name"])
	assert.Equal(t, "Apache-2.0", meta["License"])
	assert.Equal(t, "2.1.0", meta["API_VERSION"])
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("weights"), 0644)
}

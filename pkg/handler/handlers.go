package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/deepserve/image-classifier-api/pkg/concurrency"
	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/inference"
	"github.com/deepserve/image-classifier-api/pkg/models"
	"github.com/deepserve/image-classifier-api/pkg/module"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/deepserve/image-classifier-api/pkg/trainconfig"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// snapshot identifiers sort chronologically
const timestampLayout = "2006-01-02_150405"

type Handler struct {
	state      *inference.State
	jobStore   datastore.Datastore
	launcher   module.Launcher
	listenTask *module.ListenDbTask
	resolver   *paths.Resolver
	schema     *trainconfig.Schema
	httpClient *http.Client
	gate       *concurrency.Gate
}

func NewHandler(state *inference.State, jobStore datastore.Datastore, launcher module.Launcher,
	listenTask *module.ListenDbTask, resolver *paths.Resolver) *Handler {
	return &Handler{
		state:      state,
		jobStore:   jobStore,
		launcher:   launcher,
		listenTask: listenTask,
		resolver:   resolver,
		schema:     trainconfig.DefaultSchema(),
		httpClient: &http.Client{Timeout: config.HTTPTIMEOUT},
		gate:       concurrency.NewGate(config.ConfigGlobal.PredictConcurrency),
	}
}

func RegisterHandlers(router *gin.Engine, h *Handler) {
	router.GET("/health", h.Health)
	router.POST("/predict/url", h.PredictUrl)
	router.POST("/predict/file", h.PredictFile)
	router.POST("/train", h.Train)
	router.GET("/train/params", h.TrainParams)
	router.GET("/train/jobs/:jobId", h.GetJob)
	router.POST("/train/jobs/:jobId/cancel", h.CancelJob)
	router.GET("/models", h.ListModels)
	router.POST("/models/reload", h.ReloadModel)
	router.GET("/metadata", h.Metadata)
}

// Health liveness probe
// (GET /health)
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// PredictUrl predict from a list of image urls
// (POST /predict/url)
func (h *Handler) PredictUrl(c *gin.Context) {
	request := new(models.PredictUrlRequest)
	if err := getBindResult(c, request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": config.BADREQUEST})
		return
	}
	if err := h.validateURLs(request.Urls); err != nil {
		handleError(c, err)
		return
	}
	if !h.gate.Acquire() {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": config.SERVERBUSY})
		return
	}
	defer h.gate.Release()

	merge := true
	if request.Merge != nil {
		merge = *request.Merge
	}
	resp, err := h.state.Predict(request.Urls, inference.ModeURL, merge)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PredictFile predict from uploaded image files, multipart field `files`
// (POST /predict/file)
func (h *Handler) PredictFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": config.BADREQUEST})
		return
	}
	files := form.File["files"]
	if err := validateFiles(files); err != nil {
		handleError(c, err)
		return
	}
	if !h.gate.Acquire() {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": config.SERVERBUSY})
		return
	}
	defer h.gate.Release()

	merge := true
	if v := c.PostForm("merge"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			merge = parsed
		}
	}
	// the pipeline removes the spooled files on every exit path
	tmpFiles, err := spoolUploads(c, files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	resp, err := h.state.Predict(tmpFiles, inference.ModeLocal, merge)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Train merge user overrides into the default training configuration,
// persist it into a fresh snapshot and hand the snapshot to the external
// trainer
// (POST /train)
func (h *Handler) Train(c *gin.Context) {
	overrides := make(map[string]string)
	if err := getBindResult(c, &overrides); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": config.BADREQUEST})
		return
	}
	conf, err := h.schema.ApplyOverrides(overrides)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.schema.Check(conf); err != nil {
		handleError(c, err)
		return
	}

	jobId := time.Now().Format(timestampLayout)
	// free the inference network before the trainer claims the machine
	h.state.Release()

	if err := h.resolver.CreateSnapshotDirs(jobId); err != nil {
		logrus.Errorf("create snapshot dirs err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	if err := trainconfig.Save(conf, h.resolver.ConfDir(jobId)); err != nil {
		logrus.Errorf("persist training conf err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	confJSON, err := json.Marshal(conf)
	if err != nil {
		logrus.Errorf("marshal training conf err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := h.jobStore.Put(jobId, map[string]interface{}{
		datastore.KJobStatus:     config.JOB_QUEUE,
		datastore.KJobProgress:   "",
		datastore.KJobConfig:     string(confJSON),
		datastore.KJobError:      "",
		datastore.KJobCancel:     config.CANCEL_INVALID,
		datastore.KJobCreateTime: now,
		datastore.KJobModifyTime: now,
	}); err != nil {
		logrus.Errorf("create job row err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	h.listenTask.AddTask(jobId, func(v any) {
		h.launcher.Cancel(jobId)
	})
	go h.launcher.Launch(jobId)

	c.JSON(http.StatusOK, models.TrainResponse{JobId: jobId, Status: config.JOB_QUEUE})
}

// TrainParams the training parameter descriptors
// (GET /train/params)
func (h *Handler) TrainParams(c *gin.Context) {
	c.JSON(http.StatusOK, h.schema.Describe())
}

// GetJob train job status
// (GET /train/jobs/:jobId)
func (h *Handler) GetJob(c *gin.Context) {
	jobId := c.Param("jobId")
	ret, err := h.jobStore.Get(jobId, []string{datastore.KJobStatus, datastore.KJobProgress,
		datastore.KJobError, datastore.KJobCreateTime, datastore.KJobModifyTime})
	if err != nil {
		logrus.Errorf("get job row err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	if ret == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": config.NOTFOUND})
		return
	}
	status := models.JobStatus{JobId: jobId}
	status.Status, _ = ret[datastore.KJobStatus].(string)
	status.Progress, _ = ret[datastore.KJobProgress].(string)
	status.Error, _ = ret[datastore.KJobError].(string)
	status.CreateTime, _ = ret[datastore.KJobCreateTime].(string)
	status.ModifyTime, _ = ret[datastore.KJobModifyTime].(string)
	c.JSON(http.StatusOK, status)
}

// CancelJob set the cancel flag, the db listener kills the trainer
// (POST /train/jobs/:jobId/cancel)
func (h *Handler) CancelJob(c *gin.Context) {
	jobId := c.Param("jobId")
	ret, err := h.jobStore.Get(jobId, []string{datastore.KJobStatus})
	if err != nil {
		logrus.Errorf("get job row err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	if ret == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": config.NOTFOUND})
		return
	}
	if err := h.jobStore.Update(jobId, map[string]interface{}{
		datastore.KJobCancel:     config.CANCEL_VALID,
		datastore.KJobModifyTime: fmt.Sprintf("%d", time.Now().Unix()),
	}); err != nil {
		logrus.Errorf("update job row err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": jobId, "status": "cancelling"})
}

// ListModels snapshot listing with checkpoints, the served snapshot marked
// (GET /models)
func (h *Handler) ListModels(c *gin.Context) {
	timestamps, err := h.resolver.ListSnapshots()
	if err != nil {
		logrus.Errorf("list snapshots err: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
		return
	}
	active, _ := h.state.Active()
	snapshots := make([]models.SnapshotInfo, 0, len(timestamps))
	for _, ts := range timestamps {
		ckpts, err := h.resolver.ListCheckpoints(ts)
		if err != nil {
			logrus.Errorf("list checkpoints err: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": config.INTERNALERROR})
			return
		}
		snapshots = append(snapshots, models.SnapshotInfo{
			Timestamp:   ts,
			Checkpoints: ckpts,
			Active:      ts == active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

// ReloadModel explicit reload, the only refresh path besides a restart
// (POST /models/reload)
func (h *Handler) ReloadModel(c *gin.Context) {
	if err := h.state.Reload(); err != nil {
		handleError(c, apierror.Wrap(err))
		return
	}
	snapshot, checkpoint := h.state.Active()
	c.JSON(http.StatusOK, models.ReloadResponse{
		Status:     "ok",
		Snapshot:   snapshot,
		Checkpoint: checkpoint,
	})
}

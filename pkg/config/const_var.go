package config

import "time"

const (
	// train job status
	JOB_INPROGRESS = "inprogress"
	JOB_FAILED     = "failed"
	JOB_QUEUE      = "queue"
	JOB_FINISH     = "finish"
	JOB_CANCELLED  = "cancelled"

	CANCEL_VALID   = 1
	CANCEL_INVALID = 0

	HTTPTIMEOUT = 60 * time.Second
)

// ERROR message
const (
	INTERNALERROR = "an internal error"
	BADREQUEST    = "bad request body"
	NOTFOUND      = "not found"
	SERVERBUSY    = "too many prediction requests in flight"
)

// env keys
const (
	ACCESS_KEY_ID     = "ACCESS_KEY_ID"
	ACCESS_KEY_SECRET = "ACCESS_KEY_SECRET"
	ACCESS_KEY_TOKEN  = "ACCESS_KEY_TOKEN"

	// container metadata env prefix, suffix names merged into /metadata
	CONTAINER_PREFIX = "CONTAINER_"
)

// ots
const (
	COLPK = "PK"
)

// model directory layout
const (
	// reserved snapshot name pinned for serving
	ServingSnapshot = "api"

	CheckpointsDirName = "ckpts"
	SplitsDirName      = "splits"
	ConfDirName        = "config"

	ClassesFileName = "classes.txt"
	InfoFileName    = "info.txt"
	ConfFileName    = "conf.json"

	CheckpointExt  = ".onnx"
	FinalModelName = "final_model" + CheckpointExt
)

package datastore

// train jobs table
const (
	KJobTableName    = "train_jobs"
	KJobIdColumnName = "JOB_ID"
	KJobStatus       = "JOB_STATUS"
	KJobProgress     = "JOB_PROGRESS"
	KJobConfig       = "JOB_CONFIG"
	KJobError        = "JOB_ERROR"
	KJobCancel       = "JOB_CANCEL"
	KJobCreateTime   = "JOB_CREATE_TIME"
	KJobModifyTime   = "JOB_MODIFY_TIME"
)

package module

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/sirupsen/logrus"
)

// OssGlobal oss manager, nil when remote storage is not configured
var OssGlobal *OssManager

type OssManager struct {
	bucket *oss.Bucket
}

func NewOssManager() error {
	client, err := oss.New(config.ConfigGlobal.OssEndpoint, config.ConfigGlobal.AccessKeyId,
		config.ConfigGlobal.AccessKeySecret, oss.SecurityToken(config.ConfigGlobal.AccessKeyToken))
	if err != nil {
		return err
	}
	bucket, err := client.Bucket(config.ConfigGlobal.Bucket)
	if err != nil {
		return err
	}
	OssGlobal = &OssManager{
		bucket: bucket,
	}
	return nil
}

// UploadFile upload file to oss
func (o *OssManager) UploadFile(ossKey, localFile string) error {
	return o.bucket.PutObjectFromFile(ossKey, localFile)
}

// DownloadFile download file from oss
func (o *OssManager) DownloadFile(ossKey, localFile string) error {
	if err := os.MkdirAll(filepath.Dir(localFile), 0755); err != nil {
		return err
	}
	return o.bucket.GetObjectToFile(ossKey, localFile)
}

// DeleteFile delete file from oss
func (o *OssManager) DeleteFile(ossKey string) error {
	return o.bucket.DeleteObject(ossKey)
}

// UploadDir walk a local directory and upload every file under prefix,
// relative paths preserved
func (o *OssManager) UploadDir(prefix, localDir string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		ossKey := prefix + "/" + filepath.ToSlash(rel)
		return o.bucket.PutObjectFromFile(ossKey, path)
	})
}

// DownloadDir fetch every object under prefix into a local directory
func (o *OssManager) DownloadDir(prefix, localDir string) error {
	marker := ""
	for {
		resp, err := o.bucket.ListObjects(oss.Prefix(prefix+"/"), oss.Marker(marker))
		if err != nil {
			return err
		}
		for _, object := range resp.Objects {
			rel := strings.TrimPrefix(object.Key, prefix+"/")
			if rel == "" || strings.HasSuffix(object.Key, "/") {
				continue
			}
			localFile := filepath.Join(localDir, filepath.FromSlash(rel))
			if err := o.DownloadFile(object.Key, localFile); err != nil {
				return err
			}
		}
		if !resp.IsTruncated {
			return nil
		}
		marker = resp.NextMarker
	}
}

// SyncModels best-effort push of the models dir to remote storage after
// training, failures log and continue
func SyncModels(localModels string) {
	if OssGlobal == nil {
		return
	}
	if err := OssGlobal.UploadDir(config.ConfigGlobal.ModelsOssPrefix, localModels); err != nil {
		logrus.Warnf("models sync to oss failed: %v", err)
	}
}

// PullModels best-effort pull of the models dir from remote storage at start
func PullModels(localModels string) {
	if OssGlobal == nil {
		return
	}
	if err := OssGlobal.DownloadDir(config.ConfigGlobal.ModelsOssPrefix, localModels); err != nil {
		logrus.Warnf("models pull from oss failed: %v", err)
	}
}

// PullData best-effort pull of the training dataset from remote storage
func PullData(localData string) {
	if OssGlobal == nil {
		return
	}
	if err := OssGlobal.DownloadDir(config.ConfigGlobal.DataOssPrefix, localData); err != nil {
		logrus.Warnf("dataset pull from oss failed: %v", err)
	}
}

package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"time"
)

func FileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func TimestampS() int64 {
	return time.Now().Unix()
}

// FileExists check file exist
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}
		return false
	}
	return true
}

// ListFile file names under path, empty slice on error
func ListFile(path string) []string {
	fileSlice := make([]string, 0)
	entries, _ := os.ReadDir(path)
	for _, e := range entries {
		fileSlice = append(fileSlice, e.Name())
	}
	return fileSlice
}

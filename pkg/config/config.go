package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

var ConfigGlobal = DefaultConfig()

type Config struct {
	// account
	AccessKeyId     string `yaml:"accessKeyId"`
	AccessKeySecret string `yaml:"accessKeySecret"`
	AccessKeyToken  string `yaml:"accessKeyToken"`

	// serving
	ModelsDir          string `yaml:"modelsDir"`
	DataDir            string `yaml:"dataDir"`
	OrtSharedLib       string `yaml:"ortSharedLib"` // onnxruntime shared library path
	PredictConcurrency int32  `yaml:"predictConcurrency"`

	// training
	TrainShell     string `yaml:"trainShell"` // external trainer launch command
	ListenInterval int32  `yaml:"listenInterval"`

	// oss
	OssEndpoint     string `yaml:"ossEndpoint"`
	Bucket          string `yaml:"bucket"`
	ModelsOssPrefix string `yaml:"modelsOssPrefix"`
	DataOssPrefix   string `yaml:"dataOssPrefix"`

	// ots
	OtsEndpoint     string `yaml:"otsEndpoint"`
	OtsInstanceName string `yaml:"otsInstanceName"`
	OtsTimeToAlive  int    `yaml:"otsTimeToAlive"` // data expired time/second
	OtsMaxVersion   int    `yaml:"otsMaxVersion"`  // data column max version nums

	// db
	DbSqlite string `yaml:"dbSqlite"`

	// log
	LogRemoteService string `yaml:"logRemoteService"`
	ServerName       string `yaml:"serverName"`
}

func DefaultConfig() *Config {
	return &Config{
		ModelsDir:          "./models",
		DataDir:            "./data",
		PredictConcurrency: 1,
		ListenInterval:     1,
		ModelsOssPrefix:    "models",
		DataOssPrefix:      "data",
		OtsMaxVersion:      1,
		OtsTimeToAlive:     -1,
		DbSqlite:           "./sqlite3",
		ServerName:         "image-classifier-api",
		AccessKeyId:        os.Getenv(ACCESS_KEY_ID),
		AccessKeySecret:    os.Getenv(ACCESS_KEY_SECRET),
		AccessKeyToken:     os.Getenv(ACCESS_KEY_TOKEN),
	}
}

// InitConfig read the yaml config file, env AK/SK override file values.
// A missing file is not an error, the service runs with defaults.
func InitConfig(fn string) error {
	ConfigGlobal = DefaultConfig()
	data, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, ConfigGlobal); err != nil {
		return err
	}
	if ak := os.Getenv(ACCESS_KEY_ID); ak != "" {
		ConfigGlobal.AccessKeyId = ak
	}
	if sk := os.Getenv(ACCESS_KEY_SECRET); sk != "" {
		ConfigGlobal.AccessKeySecret = sk
	}
	if token := os.Getenv(ACCESS_KEY_TOKEN); token != "" {
		ConfigGlobal.AccessKeyToken = token
	}
	return nil
}

// EnableOss remote storage sync configured
func (c *Config) EnableOss() bool {
	return c.OssEndpoint != "" && c.Bucket != "" && c.AccessKeyId != "" && c.AccessKeySecret != ""
}

// SendLogToRemote trainer log batch to remote collector
func (c *Config) SendLogToRemote() bool {
	return c.LogRemoteService != ""
}

package cmd

import (
	"fmt"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/module"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <push|pull>",
	Short: "Sync the models directory with remote storage",
	Long:  "Push the local models directory to the configured bucket, or pull it down.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

func runSync(_ *cobra.Command, args []string) error {
	if !config.ConfigGlobal.EnableOss() {
		return fmt.Errorf("remote storage is not configured, set ossEndpoint/bucket and credentials")
	}
	if err := module.NewOssManager(); err != nil {
		return fmt.Errorf("oss init: %w", err)
	}
	switch args[0] {
	case "push":
		if err := module.OssGlobal.UploadDir(config.ConfigGlobal.ModelsOssPrefix,
			config.ConfigGlobal.ModelsDir); err != nil {
			return fmt.Errorf("push models: %w", err)
		}
		fmt.Println("models pushed")
	case "pull":
		if err := module.OssGlobal.DownloadDir(config.ConfigGlobal.ModelsOssPrefix,
			config.ConfigGlobal.ModelsDir); err != nil {
			return fmt.Errorf("pull models: %w", err)
		}
		fmt.Println("models pulled")
	default:
		return fmt.Errorf("unknown direction %q, use push or pull", args[0])
	}
	return nil
}

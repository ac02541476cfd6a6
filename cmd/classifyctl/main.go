package main

import (
	"os"

	"github.com/deepserve/image-classifier-api/cmd/classifyctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

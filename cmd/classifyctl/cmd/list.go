package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List trained snapshots",
	Long:    "List every snapshot in the models directory with its checkpoints.",
	RunE:    runList,
}

func runList(_ *cobra.Command, _ []string) error {
	resolver := paths.NewResolver(config.ConfigGlobal.ModelsDir)
	timestamps, err := resolver.ListSnapshots()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(timestamps) == 0 {
		fmt.Println("No snapshots found. Train a model first.")
		return nil
	}

	serving, _ := resolver.SelectSnapshot()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tCHECKPOINTS\tSERVING")
	for _, ts := range timestamps {
		ckpts, err := resolver.ListCheckpoints(ts)
		if err != nil {
			return fmt.Errorf("list checkpoints of %s: %w", ts, err)
		}
		mark := ""
		if ts == serving {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ts, strings.Join(ckpts, ","), mark)
	}
	return w.Flush()
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/deepserve/image-classifier-api/pkg/trainconfig"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the training parameter schema",
	Long:  "Print every training parameter with its group, type, default and constraints.",
	RunE:  runParams,
}

func runParams(_ *cobra.Command, _ []string) error {
	schema := trainconfig.DefaultSchema()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tKEY\tTYPE\tDEFAULT\tCONSTRAINTS")
	for _, p := range schema.Params() {
		def, _ := json.Marshal(p.Default)
		constraints := ""
		if len(p.Choices) > 0 {
			constraints = fmt.Sprintf("choices=%v", p.Choices)
		}
		if p.Min != nil || p.Max != nil {
			if constraints != "" {
				constraints += " "
			}
			switch {
			case p.Min != nil && p.Max != nil:
				constraints += fmt.Sprintf("range=[%v,%v]", *p.Min, *p.Max)
			case p.Min != nil:
				constraints += fmt.Sprintf("min=%v", *p.Min)
			default:
				constraints += fmt.Sprintf("max=%v", *p.Max)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Group, p.Key, p.Type, def, constraints)
	}
	return w.Flush()
}

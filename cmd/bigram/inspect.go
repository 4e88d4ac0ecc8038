package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/djeday123/bigram/checkpoint"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <checkpoint>...",
	Short: "Describe saved checkpoints without loading a model",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := make([]*checkpoint.Info, 0, len(args))
		for _, path := range args {
			info, err := checkpoint.Inspect(path)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}

		out := cmd.OutOrStdout()
		if inspectJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(infos)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print JSON instead of YAML")
}

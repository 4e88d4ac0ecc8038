package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/djeday123/bigram/backend"
	"github.com/djeday123/bigram/checkpoint"
)

const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:              "version",
	Short:            "Show version information",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "bigram %s\n", Version)
		fmt.Fprintf(out, "checkpoint format: v%d\n", checkpoint.Version)
		fmt.Fprintf(out, "backends:          %v\n", backend.Names())
		fmt.Fprintf(out, "go:                %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

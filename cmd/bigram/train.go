package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/djeday123/bigram/pkg/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train on a corpus, save both checkpoint forms and sample from the reloaded model",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}
		res, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "run %s\n", res.RunID)
		fmt.Fprintf(out, "vocabulary: %d symbols, parameters: %d\n", res.Vocab.Size(), res.Model.CountParameters())
		for _, pt := range res.History.Points {
			fmt.Fprintf(out, "step %5d: train loss %.4f, val loss %.4f\n", pt.Iter, pt.Train, pt.Val)
		}
		fmt.Fprintf(out, "full model:  %s (%d bytes)\n", res.FullPath, res.FullBytes)
		fmt.Fprintf(out, "state dict:  %s (%d bytes)\n", res.StatePath, res.StateBytes)
		fmt.Fprintln(out, "\n--- sample ---")
		fmt.Fprintln(out, res.Sample)
		return nil
	},
}

func init() {
	trainCmd.Flags().String("data", "", "corpus path")
	trainCmd.Flags().Int("iters", 0, "training iterations")
	trainCmd.Flags().Int("batch-size", 0, "batch size")
	trainCmd.Flags().Float64("lr", 0, "learning rate")
	trainCmd.Flags().String("backend", "", "execution backend (cpu, parallel)")
	trainCmd.Flags().String("out", "", "checkpoint directory")
	bindFlag(trainCmd, "data.path", "data")
	bindFlag(trainCmd, "train.max_iterations", "iters")
	bindFlag(trainCmd, "train.batch_size", "batch-size")
	bindFlag(trainCmd, "train.learning_rate", "lr")
	bindFlag(trainCmd, "model.backend", "backend")
	bindFlag(trainCmd, "checkpoint.dir", "out")
}

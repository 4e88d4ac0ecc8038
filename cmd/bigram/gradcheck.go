package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/optim"
)

var (
	gcVocab   int
	gcBatch   int
	gcContext int
	gcEps     float64
	gcSamples int
	gcSeed    uint64
)

var gradcheckCmd = &cobra.Command{
	Use:   "gradcheck",
	Short: "Compare the analytic table gradient with central finite differences",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		rng := rand.New(rand.NewPCG(gcSeed, gcSeed))
		model, err := nn.NewBigram(gcVocab, nn.WithSource(rng), nn.WithInitStd(1))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Model: %d params\n", model.CountParameters())

		inputs := make([][]int, gcBatch)
		targets := make([][]int, gcBatch)
		for b := range inputs {
			inputs[b] = make([]int, gcContext)
			targets[b] = make([]int, gcContext)
			for t := range inputs[b] {
				inputs[b][t] = rng.IntN(gcVocab)
				targets[b][t] = rng.IntN(gcVocab)
			}
		}

		res, err := nn.GradCheck(model, inputs, targets, gcEps, gcSamples)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Initial loss: %.6f (uniform would be %.4f = ln(%d))\n\n",
			res.Loss, math.Log(float64(gcVocab)), gcVocab)

		for _, e := range res.Entries {
			fmt.Fprintf(out, "%s[%d,%d]: ana=%.8f num=%.8f rel_err=%.2e\n",
				e.Param, e.Row, e.Col, e.Analytic, e.Numeric, e.RelErr)
		}
		switch {
		case res.MaxRelErr > 1e-2:
			color.Red("max_err=%.2e ✗ BAD", res.MaxRelErr)
		case res.MaxRelErr > 1e-4:
			color.Yellow("max_err=%.2e ~ OK", res.MaxRelErr)
		default:
			color.Green("max_err=%.2e ✓", res.MaxRelErr)
		}

		// one descent step along the analytic gradient must lower the loss
		opt := optim.NewSGD(model.Parameters(), 0.01)
		opt.Step()
		_, after, err := model.Forward(inputs, targets, nn.ModeNoGrad)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nLoss before: %.6f\nLoss after:  %.6f\n", res.Loss, after)
		if after >= res.Loss {
			return fmt.Errorf("loss did not decrease after one SGD step")
		}
		if res.MaxRelErr > 1e-2 {
			return fmt.Errorf("gradient check failed: max relative error %.2e", res.MaxRelErr)
		}
		return nil
	},
}

func init() {
	gradcheckCmd.Flags().IntVar(&gcVocab, "vocab", 16, "vocabulary size")
	gradcheckCmd.Flags().IntVar(&gcBatch, "batch", 2, "batch size")
	gradcheckCmd.Flags().IntVar(&gcContext, "context", 8, "context length")
	gradcheckCmd.Flags().Float64Var(&gcEps, "eps", 1e-5, "finite difference step")
	gradcheckCmd.Flags().IntVar(&gcSamples, "samples", 12, "table entries to check")
	gradcheckCmd.Flags().Uint64Var(&gcSeed, "seed", 1, "random seed")
}

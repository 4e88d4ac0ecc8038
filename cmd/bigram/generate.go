package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/pkg/generator"
	"github.com/djeday123/bigram/pkg/pipeline"
	"github.com/djeday123/bigram/tokenizer"
)

var (
	generateFrom  string
	generateModel string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Sample text from a saved full model or state dict",
	Long: `Sample text from a saved checkpoint.

--from full loads the full model, which carries its own vocabulary.
--from state rebuilds the vocabulary from the corpus (data.path), constructs a
fresh predictor and injects the saved weights.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}

		var (
			model *nn.Bigram
			vocab *tokenizer.Vocabulary
		)
		switch generateFrom {
		case "full":
			path := generateModel
			if path == "" {
				path = p.FullPath()
			}
			m, err := p.LoadFull(path)
			if err != nil {
				return err
			}
			model, vocab = m.Bigram, m.Vocab
			logger.Info().Str("path", path).Str("run_id", m.Meta.RunID).Msg("loaded full model")
		case "state":
			path := generateModel
			if path == "" {
				path = p.StatePath()
			}
			corpus, err := p.ReadCorpus()
			if err != nil {
				return err
			}
			model, vocab, err = p.LoadStateDict(path, corpus)
			if err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("loaded state dict")
		default:
			return fmt.Errorf("--from must be full or state, got %q", generateFrom)
		}

		gen, err := generator.New(model, vocab, cfg.Generate)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, cfg.Generate.Prompt)
		err = gen.GenerateStream(cmd.Context(), cfg.Generate.Prompt, func(s string) error {
			_, err := fmt.Fprint(out, s)
			return err
		})
		fmt.Fprintln(out)
		return err
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateFrom, "from", "full", "checkpoint form to load (full, state)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "checkpoint path (default from config)")
	generateCmd.Flags().String("data", "", "corpus path used to rebuild the vocabulary for --from state")
	generateCmd.Flags().Int("steps", 0, "symbols to generate")
	generateCmd.Flags().String("prompt", "", "prompt to continue (empty starts from the first symbol)")
	generateCmd.Flags().Bool("greedy", false, "always pick the most likely symbol")
	generateCmd.Flags().Float64("temperature", 0, "softmax temperature")
	generateCmd.Flags().Int("top-k", 0, "sample only from the k most likely symbols")
	generateCmd.Flags().Uint64("seed", 0, "sampling seed")
	bindFlag(generateCmd, "data.path", "data")
	bindFlag(generateCmd, "generate.steps", "steps")
	bindFlag(generateCmd, "generate.prompt", "prompt")
	bindFlag(generateCmd, "generate.greedy", "greedy")
	bindFlag(generateCmd, "generate.temperature", "temperature")
	bindFlag(generateCmd, "generate.top_k", "top-k")
	bindFlag(generateCmd, "generate.seed", "seed")
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/train"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix prefixes every environment override, e.g. BIGRAM_TRAIN_BATCH_SIZE.
const EnvPrefix = "BIGRAM"

// Config holds the configuration for the whole bigram workflow.
type Config struct {
	Data       DataConfig       `mapstructure:"data" yaml:"data"`
	Model      ModelConfig      `mapstructure:"model" yaml:"model"`
	Train      TrainConfig      `mapstructure:"train" yaml:"train"`
	Generate   GenerateConfig   `mapstructure:"generate" yaml:"generate"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// DataConfig selects the corpus and how it is split and tokenized.
type DataConfig struct {
	Path          string  `mapstructure:"path" yaml:"path"`
	TrainFraction float64 `mapstructure:"train_fraction" yaml:"train_fraction"`
	Tokenizer     string  `mapstructure:"tokenizer" yaml:"tokenizer"` // rune | byte
}

// ModelConfig configures the predictor.
type ModelConfig struct {
	InitStd float64 `mapstructure:"init_std" yaml:"init_std"`
	Backend string  `mapstructure:"backend" yaml:"backend"` // cpu | parallel
	Seed    uint64  `mapstructure:"seed" yaml:"seed"`
}

// TrainConfig mirrors train.Config.
type TrainConfig struct {
	BatchSize      int     `mapstructure:"batch_size" yaml:"batch_size"`
	ContextLength  int     `mapstructure:"context_length" yaml:"context_length"`
	MaxIterations  int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	EvalInterval   int     `mapstructure:"eval_interval" yaml:"eval_interval"`
	LearningRate   float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	EvalIterations int     `mapstructure:"eval_iterations" yaml:"eval_iterations"`
	MinLR          float64 `mapstructure:"min_lr" yaml:"min_lr"`
	WarmupSteps    int     `mapstructure:"warmup_steps" yaml:"warmup_steps"`
	Schedule       string  `mapstructure:"schedule" yaml:"schedule"`
	Optimizer      string  `mapstructure:"optimizer" yaml:"optimizer"`
	WeightDecay    float64 `mapstructure:"weight_decay" yaml:"weight_decay"`
	MaxGradNorm    float64 `mapstructure:"max_grad_norm" yaml:"max_grad_norm"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed"`
}

// GenerateConfig configures sampling.
type GenerateConfig struct {
	Steps       int     `mapstructure:"steps" yaml:"steps"`
	Prompt      string  `mapstructure:"prompt" yaml:"prompt"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	TopK        int     `mapstructure:"top_k" yaml:"top_k"`
	Greedy      bool    `mapstructure:"greedy" yaml:"greedy"`
	Seed        uint64  `mapstructure:"seed" yaml:"seed"`
}

// CheckpointConfig names the two artifacts.
type CheckpointConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	Full      string `mapstructure:"full" yaml:"full"`
	StateDict string `mapstructure:"state_dict" yaml:"state_dict"`
	DType     string `mapstructure:"dtype" yaml:"dtype"` // dtype of form B values
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console | json
}

// DefaultConfig returns the defaults of the classic bigram notebook.
func DefaultConfig() *Config {
	t := train.DefaultConfig()
	return &Config{
		Data: DataConfig{
			Path:          "input.txt",
			TrainFraction: 0.9,
			Tokenizer:     "rune",
		},
		Model: ModelConfig{
			InitStd: 0.02,
			Backend: "cpu",
			Seed:    1337,
		},
		Train: TrainConfig{
			BatchSize:      t.BatchSize,
			ContextLength:  t.ContextLength,
			MaxIterations:  t.MaxIterations,
			EvalInterval:   t.EvalInterval,
			LearningRate:   t.LearningRate,
			EvalIterations: t.EvalIterations,
			MinLR:          t.MinLR,
			WarmupSteps:    t.WarmupSteps,
			Schedule:       t.Schedule,
			Optimizer:      t.Optimizer,
			WeightDecay:    t.WeightDecay,
			MaxGradNorm:    t.MaxGradNorm,
			Seed:           t.Seed,
		},
		Generate: GenerateConfig{
			Steps:       500,
			Temperature: 1,
			Seed:        1337,
		},
		Checkpoint: CheckpointConfig{
			Dir:       "checkpoints",
			Full:      "model_full.gob",
			StateDict: "model_state_dict.gob",
			DType:     "float64",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data.path", d.Data.Path)
	v.SetDefault("data.train_fraction", d.Data.TrainFraction)
	v.SetDefault("data.tokenizer", d.Data.Tokenizer)

	v.SetDefault("model.init_std", d.Model.InitStd)
	v.SetDefault("model.backend", d.Model.Backend)
	v.SetDefault("model.seed", d.Model.Seed)

	v.SetDefault("train.batch_size", d.Train.BatchSize)
	v.SetDefault("train.context_length", d.Train.ContextLength)
	v.SetDefault("train.max_iterations", d.Train.MaxIterations)
	v.SetDefault("train.eval_interval", d.Train.EvalInterval)
	v.SetDefault("train.learning_rate", d.Train.LearningRate)
	v.SetDefault("train.eval_iterations", d.Train.EvalIterations)
	v.SetDefault("train.min_lr", d.Train.MinLR)
	v.SetDefault("train.warmup_steps", d.Train.WarmupSteps)
	v.SetDefault("train.schedule", d.Train.Schedule)
	v.SetDefault("train.optimizer", d.Train.Optimizer)
	v.SetDefault("train.weight_decay", d.Train.WeightDecay)
	v.SetDefault("train.max_grad_norm", d.Train.MaxGradNorm)
	v.SetDefault("train.seed", d.Train.Seed)

	v.SetDefault("generate.steps", d.Generate.Steps)
	v.SetDefault("generate.prompt", d.Generate.Prompt)
	v.SetDefault("generate.temperature", d.Generate.Temperature)
	v.SetDefault("generate.top_k", d.Generate.TopK)
	v.SetDefault("generate.greedy", d.Generate.Greedy)
	v.SetDefault("generate.seed", d.Generate.Seed)

	v.SetDefault("checkpoint.dir", d.Checkpoint.Dir)
	v.SetDefault("checkpoint.full", d.Checkpoint.Full)
	v.SetDefault("checkpoint.state_dict", d.Checkpoint.StateDict)
	v.SetDefault("checkpoint.dtype", d.Checkpoint.DType)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// New returns a viper instance carrying the defaults and BIGRAM_* env binding.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from file, defaults and environment variables.
// An empty path searches ./bigram.{yaml,json,toml}; a missing search result
// is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(New(), path)
}

// LoadWith is Load on a caller-provided viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("bigram")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces positivity and ranges.
func (c *Config) Validate() error {
	if c.Data.TrainFraction <= 0 || c.Data.TrainFraction >= 1 {
		return fmt.Errorf("%w: data.train_fraction must be in (0,1), got %g", ErrInvalid, c.Data.TrainFraction)
	}
	switch c.Data.Tokenizer {
	case "rune", "char", "byte":
	default:
		return fmt.Errorf("%w: data.tokenizer must be rune or byte, got %q", ErrInvalid, c.Data.Tokenizer)
	}
	if c.Model.InitStd < 0 {
		return fmt.Errorf("%w: model.init_std must be non-negative", ErrInvalid)
	}
	if err := c.Train.ToTrain().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Train.Schedule {
	case "constant", "cosine":
	default:
		return fmt.Errorf("%w: train.schedule must be constant or cosine, got %q", ErrInvalid, c.Train.Schedule)
	}
	switch c.Train.Optimizer {
	case "adamw", "sgd":
	default:
		return fmt.Errorf("%w: train.optimizer must be adamw or sgd, got %q", ErrInvalid, c.Train.Optimizer)
	}
	if c.Generate.Steps < 0 || c.Generate.TopK < 0 || c.Generate.Temperature < 0 {
		return fmt.Errorf("%w: generate.steps, top_k and temperature must be non-negative", ErrInvalid)
	}
	if _, err := core.ParseDType(c.Checkpoint.DType); err != nil {
		return fmt.Errorf("%w: checkpoint.dtype: %v", ErrInvalid, err)
	}
	if c.Checkpoint.Full == "" || c.Checkpoint.StateDict == "" {
		return fmt.Errorf("%w: checkpoint file names must be set", ErrInvalid)
	}
	return nil
}

// ToTrain converts to the trainer's config.
func (t TrainConfig) ToTrain() train.Config {
	return train.Config{
		BatchSize:      t.BatchSize,
		ContextLength:  t.ContextLength,
		MaxIterations:  t.MaxIterations,
		EvalInterval:   t.EvalInterval,
		LearningRate:   t.LearningRate,
		EvalIterations: t.EvalIterations,
		MinLR:          t.MinLR,
		WarmupSteps:    t.WarmupSteps,
		Schedule:       t.Schedule,
		Optimizer:      t.Optimizer,
		WeightDecay:    t.WeightDecay,
		MaxGradNorm:    t.MaxGradNorm,
		Seed:           t.Seed,
	}
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

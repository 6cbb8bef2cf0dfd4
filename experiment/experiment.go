// Package experiment models the hierarchical configuration handed to the
// external training/eval driver. A base YAML recipe config is loaded through
// viper, typed defaults fill the gaps, and a flat list of dotted
// `KEY.SUBKEY value` overrides is applied on top — override wins over file,
// file wins over default, exactly the merge order the driver applies on its
// side. The resulting Config is what showrunner validates and records; the
// override tail is forwarded to the driver untouched.
package experiment

import (
	"fmt"

	"github.com/spf13/viper"
)

// TrainConfig covers the TRAIN group of the driver configuration.
type TrainConfig struct {
	Enable           bool `mapstructure:"ENABLE"`
	BatchSize        int  `mapstructure:"BATCH_SIZE"`
	EvalPeriod       int  `mapstructure:"EVAL_PERIOD"`
	CheckpointPeriod int  `mapstructure:"CHECKPOINT_PERIOD"`
	AutoResume       bool `mapstructure:"AUTO_RESUME"`
}

// TestConfig covers the TEST group: test-time ensembling and the checkpoint
// under evaluation.
type TestConfig struct {
	Enable             bool   `mapstructure:"ENABLE"`
	BatchSize          int    `mapstructure:"BATCH_SIZE"`
	NumEnsembleViews   int    `mapstructure:"NUM_ENSEMBLE_VIEWS"`
	NumSpatialCrops    int    `mapstructure:"NUM_SPATIAL_CROPS"`
	CheckpointFilePath string `mapstructure:"CHECKPOINT_FILE_PATH"`
}

// DataConfig covers the DATA group: dataset location and sampling geometry.
type DataConfig struct {
	PathToDataDir      string    `mapstructure:"PATH_TO_DATA_DIR"`
	PathPrefix         string    `mapstructure:"PATH_PREFIX"`
	PathLabelSeparator string    `mapstructure:"PATH_LABEL_SEPARATOR"`
	NumFrames          int       `mapstructure:"NUM_FRAMES"`
	SamplingRate       int       `mapstructure:"SAMPLING_RATE"`
	TrainJitterScales  []int     `mapstructure:"TRAIN_JITTER_SCALES"`
	TrainCropSize      int       `mapstructure:"TRAIN_CROP_SIZE"`
	TestCropSize       int       `mapstructure:"TEST_CROP_SIZE"`
	TargetFPS          int       `mapstructure:"TARGET_FPS"`
	Mean               []float64 `mapstructure:"MEAN"`
	Std                []float64 `mapstructure:"STD"`
	RandomFlip         bool      `mapstructure:"RANDOM_FLIP"`
}

// SolverConfig covers the SOLVER group: optimizer schedule hyperparameters.
type SolverConfig struct {
	MaxEpoch         int     `mapstructure:"MAX_EPOCH"`
	BaseLR           float64 `mapstructure:"BASE_LR"`
	LRPolicy         string  `mapstructure:"LR_POLICY"`
	WarmupEpochs     float64 `mapstructure:"WARMUP_EPOCHS"`
	WeightDecay      float64 `mapstructure:"WEIGHT_DECAY"`
	OptimizingMethod string  `mapstructure:"OPTIMIZING_METHOD"`
}

// ModelConfig covers the MODEL group.
type ModelConfig struct {
	ModelName  string `mapstructure:"MODEL_NAME"`
	Arch       string `mapstructure:"ARCH"`
	NumClasses int    `mapstructure:"NUM_CLASSES"`
}

// DataLoaderConfig covers the DATA_LOADER group.
type DataLoaderConfig struct {
	NumWorkers              int  `mapstructure:"NUM_WORKERS"`
	PinMemory               bool `mapstructure:"PIN_MEMORY"`
	EnableMultiThreadDecode bool `mapstructure:"ENABLE_MULTI_THREAD_DECODE"`
}

// Config is the effective driver configuration after merging defaults, the
// base YAML recipe config, and the override tail.
type Config struct {
	Train      TrainConfig      `mapstructure:"TRAIN"`
	Test       TestConfig       `mapstructure:"TEST"`
	Data       DataConfig       `mapstructure:"DATA"`
	Solver     SolverConfig     `mapstructure:"SOLVER"`
	Model      ModelConfig      `mapstructure:"MODEL"`
	DataLoader DataLoaderConfig `mapstructure:"DATA_LOADER"`
	NumGPUs    int              `mapstructure:"NUM_GPUS"`
	NumShards  int              `mapstructure:"NUM_SHARDS"`
	RNGSeed    int              `mapstructure:"RNG_SEED"`
	OutputDir  string           `mapstructure:"OUTPUT_DIR"`
	InitMethod string           `mapstructure:"INIT_METHOD"`
}

// setDefaults seeds the viper instance with the driver's baseline values so a
// sparse recipe config still unmarshals into a usable Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("TRAIN.ENABLE", true)
	v.SetDefault("TRAIN.BATCH_SIZE", 64)
	v.SetDefault("TRAIN.EVAL_PERIOD", 1)
	v.SetDefault("TRAIN.CHECKPOINT_PERIOD", 1)
	v.SetDefault("TRAIN.AUTO_RESUME", true)

	v.SetDefault("TEST.ENABLE", true)
	v.SetDefault("TEST.BATCH_SIZE", 64)
	v.SetDefault("TEST.NUM_ENSEMBLE_VIEWS", 1)
	v.SetDefault("TEST.NUM_SPATIAL_CROPS", 1)
	v.SetDefault("TEST.CHECKPOINT_FILE_PATH", "")

	v.SetDefault("DATA.PATH_TO_DATA_DIR", "")
	v.SetDefault("DATA.PATH_PREFIX", "")
	v.SetDefault("DATA.PATH_LABEL_SEPARATOR", " ")
	v.SetDefault("DATA.NUM_FRAMES", 8)
	v.SetDefault("DATA.SAMPLING_RATE", 8)
	v.SetDefault("DATA.TRAIN_JITTER_SCALES", []int{256, 320})
	v.SetDefault("DATA.TRAIN_CROP_SIZE", 224)
	v.SetDefault("DATA.TEST_CROP_SIZE", 224)
	v.SetDefault("DATA.TARGET_FPS", 30)
	v.SetDefault("DATA.MEAN", []float64{0.45, 0.45, 0.45})
	v.SetDefault("DATA.STD", []float64{0.225, 0.225, 0.225})
	v.SetDefault("DATA.RANDOM_FLIP", true)

	v.SetDefault("SOLVER.MAX_EPOCH", 100)
	v.SetDefault("SOLVER.BASE_LR", 0.1)
	v.SetDefault("SOLVER.LR_POLICY", "cosine")
	v.SetDefault("SOLVER.WARMUP_EPOCHS", 0.0)
	v.SetDefault("SOLVER.WEIGHT_DECAY", 1e-4)
	v.SetDefault("SOLVER.OPTIMIZING_METHOD", "sgd")

	v.SetDefault("MODEL.MODEL_NAME", "")
	v.SetDefault("MODEL.ARCH", "")
	v.SetDefault("MODEL.NUM_CLASSES", 400)

	v.SetDefault("DATA_LOADER.NUM_WORKERS", 8)
	v.SetDefault("DATA_LOADER.PIN_MEMORY", true)
	v.SetDefault("DATA_LOADER.ENABLE_MULTI_THREAD_DECODE", false)

	v.SetDefault("NUM_GPUS", 1)
	v.SetDefault("NUM_SHARDS", 1)
	v.SetDefault("RNG_SEED", 0)
	v.SetDefault("OUTPUT_DIR", ".")
	v.SetDefault("INIT_METHOD", "tcp://localhost:9999")
}

// Load reads the base YAML config at path, applies the overrides on top and
// unmarshals the merged result. An empty path loads defaults plus overrides
// only, which is what test-mode launches without a recipe use.
func Load(path string, overrides ...Override) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading base config %s : %w", path, err)
		}
	}

	for _, override := range overrides {
		v.Set(override.Key, override.CoercedValue())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct : %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the shell launchers used to get right by
// convention. It is called before any driver process is started.
func (cfg *Config) Validate() error {
	workers := cfg.NumGPUs * cfg.NumShards
	if cfg.NumGPUs < 1 || cfg.NumShards < 1 {
		return fmt.Errorf("invalid worker topology: %d gpus x %d shards", cfg.NumGPUs, cfg.NumShards)
	}
	if cfg.Train.BatchSize%workers != 0 {
		return fmt.Errorf("train batch size %d not divisible by %d workers", cfg.Train.BatchSize, workers)
	}
	if cfg.Test.BatchSize%workers != 0 {
		return fmt.Errorf("test batch size %d not divisible by %d workers", cfg.Test.BatchSize, workers)
	}
	if cfg.Test.NumEnsembleViews < 1 {
		return fmt.Errorf("invalid ensemble views: %d", cfg.Test.NumEnsembleViews)
	}
	if cfg.Test.NumSpatialCrops < 1 {
		return fmt.Errorf("invalid spatial crops: %d", cfg.Test.NumSpatialCrops)
	}
	if cfg.Solver.MaxEpoch < 1 {
		return fmt.Errorf("invalid max epoch: %d", cfg.Solver.MaxEpoch)
	}
	if cfg.Train.EvalPeriod < 1 || cfg.Train.CheckpointPeriod < 1 {
		return fmt.Errorf("eval period %d and checkpoint period %d must be >= 1", cfg.Train.EvalPeriod, cfg.Train.CheckpointPeriod)
	}
	if cfg.Model.NumClasses < 1 {
		return fmt.Errorf("invalid class count: %d", cfg.Model.NumClasses)
	}
	return nil
}

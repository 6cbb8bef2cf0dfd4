package showrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"showrunner/domain"
	"showrunner/experiment"
)

// RecipeOverride is a single ordered override entry in a recipe file.
type RecipeOverride struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Recipe is the YAML replacement for a hand-written launch script. It names
// the base driver config and carries the environment and override tail the
// script used to assemble.
type Recipe struct {
	Name       string            `yaml:"name"`        // Run name, defaults to the recipe file name
	Mode       string            `yaml:"mode"`        // train or test
	Config     string            `yaml:"config"`      // Base YAML config handed to the driver
	InitMethod string            `yaml:"init_method"` // Distributed init method URL, optional
	OutputDir  string            `yaml:"output_dir"`  // Driver output directory, optional
	Seed       int               `yaml:"seed"`        // RNG seed, optional
	Env        map[string]string `yaml:"env"`         // Launch environment (NUM_SHARDS, NUM_GPUS, BATCH_SIZE, BASE_LR)
	Overrides  []RecipeOverride  `yaml:"overrides"`   // Ordered dotted-key overrides
}

// LoadRecipe reads and validates a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s : %w", path, err)
	}
	recipe := &Recipe{}
	if err := yaml.Unmarshal(content, recipe); err != nil {
		return nil, fmt.Errorf("unmarshalling recipe %s : %w", path, err)
	}
	if recipe.Name == "" {
		recipe.Name = strings.TrimSuffix(filepath.Base(path), recipeSuffix)
	}
	if recipe.Mode == "" {
		recipe.Mode = string(domain.ModeTrain)
	}
	if recipe.Mode != string(domain.ModeTrain) && recipe.Mode != string(domain.ModeTest) {
		return nil, fmt.Errorf("invalid recipe mode %q", recipe.Mode)
	}
	if recipe.Config == "" {
		return nil, fmt.Errorf("recipe %s names no base config", path)
	}
	for _, override := range recipe.Overrides {
		if override.Key == "" {
			return nil, fmt.Errorf("recipe %s has an override with an empty key", path)
		}
	}
	return recipe, nil
}

// LaunchSpec converts the recipe into the launcher's invocation request.
func (recipe *Recipe) LaunchSpec() LaunchSpec {
	overrides := make([]experiment.Override, 0, len(recipe.Overrides))
	for _, override := range recipe.Overrides {
		overrides = append(overrides, experiment.Override{Key: override.Key, Value: override.Value})
	}
	return LaunchSpec{
		Name:       recipe.Name,
		Mode:       domain.RunMode(recipe.Mode),
		Config:     recipe.Config,
		Overrides:  overrides,
		Env:        recipe.Env,
		InitMethod: recipe.InitMethod,
		OutputDir:  recipe.OutputDir,
		Seed:       recipe.Seed,
	}
}

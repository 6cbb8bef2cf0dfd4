package showrunner

import (
	"os"
	"path/filepath"
	"testing"

	"showrunner/domain"
)

func writeTestRecipe(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing recipe: %v", err)
	}
	return path
}

func TestLoadRecipe(t *testing.T) {
	t.Run("should load a full recipe", func(t *testing.T) {
		path := writeTestRecipe(t, "k400-train.yaml", `
name: k400-b16-f8
mode: train
config: exp/k400/config.yaml
init_method: tcp://localhost:9999
output_dir: .
seed: 6666
env:
  NUM_SHARDS: "1"
  NUM_GPUS: "8"
  BATCH_SIZE: "128"
  BASE_LR: "1e-5"
overrides:
  - key: TRAIN.BATCH_SIZE
    value: "128"
  - key: DATA.TRAIN_JITTER_SCALES
    value: "[256, 320]"
`)

		recipe, err := LoadRecipe(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if recipe.Name != "k400-b16-f8" {
			t.Errorf("\nwanted:\nk400-b16-f8\ngot:\n%q", recipe.Name)
		}
		if recipe.Env["BASE_LR"] != "1e-5" {
			t.Errorf("\nwanted:\n1e-5\ngot:\n%q", recipe.Env["BASE_LR"])
		}
		if len(recipe.Overrides) != 2 {
			t.Fatalf("\nwanted:\n2 overrides\ngot:\n%d", len(recipe.Overrides))
		}
		if recipe.Overrides[1].Key != "DATA.TRAIN_JITTER_SCALES" {
			t.Errorf("\nwanted:\nDATA.TRAIN_JITTER_SCALES\ngot:\n%q", recipe.Overrides[1].Key)
		}
	})

	t.Run("should default the name and mode", func(t *testing.T) {
		path := writeTestRecipe(t, "k400-quick.yaml", "config: exp/k400/config.yaml\n")

		recipe, err := LoadRecipe(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if recipe.Name != "k400-quick" {
			t.Errorf("\nwanted:\nk400-quick\ngot:\n%q", recipe.Name)
		}
		if recipe.Mode != string(domain.ModeTrain) {
			t.Errorf("\nwanted:\ntrain\ngot:\n%q", recipe.Mode)
		}
	})

	t.Run("should reject an invalid mode", func(t *testing.T) {
		path := writeTestRecipe(t, "bad-mode.yaml", "config: exp/k400/config.yaml\nmode: deploy\n")

		if _, err := LoadRecipe(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should reject a recipe without a config", func(t *testing.T) {
		path := writeTestRecipe(t, "no-config.yaml", "mode: train\n")

		if _, err := LoadRecipe(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should reject an override with an empty key", func(t *testing.T) {
		path := writeTestRecipe(t, "empty-key.yaml", `
config: exp/k400/config.yaml
overrides:
  - key: ""
    value: "1"
`)

		if _, err := LoadRecipe(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should error on a missing file", func(t *testing.T) {
		if _, err := LoadRecipe(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRecipeLaunchSpec(t *testing.T) {
	t.Run("should carry every field into the spec", func(t *testing.T) {
		recipe := &Recipe{
			Name:       "k400-eval",
			Mode:       "test",
			Config:     "exp/k400/config.yaml",
			InitMethod: "tcp://localhost:10125",
			OutputDir:  "out",
			Seed:       6666,
			Env:        map[string]string{"NUM_GPUS": "8"},
			Overrides:  []RecipeOverride{{Key: "TEST.NUM_ENSEMBLE_VIEWS", Value: "4"}},
		}

		spec := recipe.LaunchSpec()

		if spec.Mode != domain.ModeTest {
			t.Errorf("\nwanted:\ntest\ngot:\n%q", spec.Mode)
		}
		if spec.Env["NUM_GPUS"] != "8" {
			t.Errorf("\nwanted:\n8\ngot:\n%q", spec.Env["NUM_GPUS"])
		}
		if len(spec.Overrides) != 1 || spec.Overrides[0].Key != "TEST.NUM_ENSEMBLE_VIEWS" {
			t.Errorf("\nwanted:\nTEST.NUM_ENSEMBLE_VIEWS\ngot:\n%v", spec.Overrides)
		}
	})
}

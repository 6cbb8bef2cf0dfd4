package checkpoint

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func testCheckpoint() *Checkpoint {
	return &Checkpoint{
		Tensors: map[string]*Tensor{
			"visual.conv1.weight": {
				Dtype: "F32",
				Shape: []int64{2, 3},
				Data:  []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
			},
			"visual.proj": {
				Dtype: "F16",
				Shape: []int64{4},
				Data:  []byte{1, 1, 2, 2, 3, 3, 4, 4},
			},
			"visual.ln_post.weight": {
				Dtype: "F32",
				Shape: []int64{2},
				Data:  []byte{0, 0, 0, 0, 0, 0, 0, 0},
			},
			"visual.ln_post.bias": {
				Dtype: "F32",
				Shape: []int64{2},
				Data:  []byte{1, 0, 0, 0, 0, 0, 0, 1},
			},
			"visual.ln_pre.weight": {
				Dtype: "F32",
				Shape: []int64{2},
				Data:  []byte{9, 9, 9, 9, 8, 8, 8, 8},
			},
			"transformer.resblocks.0.attn.in_proj_weight": {
				Dtype: "F32",
				Shape: []int64{1},
				Data:  []byte{7, 7, 7, 7},
			},
		},
		Metadata: map[string]string{"format": "pt"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Run("should round-trip tensors and metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.safetensors")
		original := testCheckpoint()

		if err := original.Save(path); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(loaded.Tensors) != len(original.Tensors) {
			t.Fatalf("\nwanted:\n%d tensors\ngot:\n%d", len(original.Tensors), len(loaded.Tensors))
		}
		tensor, ok := loaded.Tensors["visual.conv1.weight"]
		if !ok {
			t.Fatalf("\nwanted:\nvisual.conv1.weight\ngot:\nmissing")
		}
		if tensor.Dtype != "F32" {
			t.Errorf("\nwanted:\nF32\ngot:\n%q", tensor.Dtype)
		}
		if len(tensor.Shape) != 2 || tensor.Shape[0] != 2 || tensor.Shape[1] != 3 {
			t.Errorf("\nwanted:\n[2 3]\ngot:\n%v", tensor.Shape)
		}
		if len(tensor.Data) != 24 || tensor.Data[0] != 1 || tensor.Data[23] != 24 {
			t.Errorf("\nwanted:\n24 bytes preserved\ngot:\n%v", tensor.Data)
		}
		if loaded.Metadata["format"] != "pt" {
			t.Errorf("\nwanted:\npt\ngot:\n%q", loaded.Metadata["format"])
		}
	})

	t.Run("should write a deterministic layout", func(t *testing.T) {
		dir := t.TempDir()
		first := filepath.Join(dir, "a.safetensors")
		second := filepath.Join(dir, "b.safetensors")

		if err := testCheckpoint().Save(first); err != nil {
			t.Fatalf("saving: %v", err)
		}
		if err := testCheckpoint().Save(second); err != nil {
			t.Fatalf("saving: %v", err)
		}

		firstBytes, err := os.ReadFile(first)
		if err != nil {
			t.Fatalf("reading: %v", err)
		}
		secondBytes, err := os.ReadFile(second)
		if err != nil {
			t.Fatalf("reading: %v", err)
		}
		if string(firstBytes) != string(secondBytes) {
			t.Fatalf("\nwanted:\nidentical files\ngot:\ndiffering output")
		}
	})

	t.Run("should reject a truncated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.safetensors")
		if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
			t.Fatalf("writing: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should reject a header length past the end of file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.safetensors")
		content := make([]byte, 16)
		binary.LittleEndian.PutUint64(content, 1<<32)
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("writing: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should reject tensor offsets outside the data block", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "offsets.safetensors")
		header := `{"w":{"dtype":"F32","shape":[1],"data_offsets":[0,64]}}`
		content := make([]byte, 8)
		binary.LittleEndian.PutUint64(content, uint64(len(header)))
		content = append(content, header...)
		content = append(content, make([]byte, 4)...)
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("writing: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestExtractVisual(t *testing.T) {
	t.Run("should keep stripped visual keys and drop the text-facing ones", func(t *testing.T) {
		dir := t.TempDir()
		inPath := filepath.Join(dir, "clip.safetensors")
		outPath := filepath.Join(dir, "vit_b16.safetensors")
		if err := testCheckpoint().Save(inPath); err != nil {
			t.Fatalf("saving: %v", err)
		}

		count, err := ExtractVisual(inPath, outPath)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if count != 2 {
			t.Errorf("\nwanted:\n2 tensors\ngot:\n%d", count)
		}

		extracted, err := Load(outPath)
		if err != nil {
			t.Fatalf("loading extracted: %v", err)
		}

		for _, want := range []string{"conv1.weight", "ln_pre.weight"} {
			if _, ok := extracted.Tensors[want]; !ok {
				t.Errorf("\nwanted:\n%s kept\ngot:\nmissing", want)
			}
		}
		for _, dropped := range []string{"proj", "ln_post.weight", "ln_post.bias", "transformer.resblocks.0.attn.in_proj_weight"} {
			if _, ok := extracted.Tensors[dropped]; ok {
				t.Errorf("\nwanted:\n%s dropped\ngot:\nkept", dropped)
			}
		}

		tensor := extracted.Tensors["conv1.weight"]
		if tensor.Dtype != "F32" || len(tensor.Data) != 24 {
			t.Errorf("\nwanted:\ndtype and data preserved\ngot:\n%s %d bytes", tensor.Dtype, len(tensor.Data))
		}
	})

	t.Run("should error when no visual keys exist", func(t *testing.T) {
		dir := t.TempDir()
		inPath := filepath.Join(dir, "text.safetensors")
		outPath := filepath.Join(dir, "out.safetensors")
		textOnly := &Checkpoint{
			Tensors: map[string]*Tensor{
				"token_embedding.weight": {Dtype: "F32", Shape: []int64{1}, Data: []byte{0, 0, 0, 0}},
			},
		}
		if err := textOnly.Save(inPath); err != nil {
			t.Fatalf("saving: %v", err)
		}

		if _, err := ExtractVisual(inPath, outPath); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should error on a missing input file", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := ExtractVisual(filepath.Join(dir, "missing.safetensors"), filepath.Join(dir, "out.safetensors")); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

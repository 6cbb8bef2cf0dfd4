package checkpoint

import (
	"fmt"
	"strings"
)

const visualPrefix = "visual."

// droppedKeys are the CLIP visual-tower keys the driver's backbone does not
// consume: the text projection and the final layer norm.
var droppedKeys = map[string]struct{}{
	"proj":           {},
	"ln_post.weight": {},
	"ln_post.bias":   {},
}

// ExtractVisual reads a full CLIP checkpoint and writes a new one containing
// only the visual tower: keys with the visual. prefix are kept with the
// prefix stripped, except proj, ln_post.weight and ln_post.bias. Dtype, shape
// and data are preserved. It returns the number of tensors written.
func ExtractVisual(inPath, outPath string) (int, error) {
	full, err := Load(inPath)
	if err != nil {
		return 0, fmt.Errorf("loading checkpoint : %w", err)
	}

	extracted := &Checkpoint{
		Tensors:  make(map[string]*Tensor),
		Metadata: full.Metadata,
	}
	for name, tensor := range full.Tensors {
		if !strings.HasPrefix(name, visualPrefix) {
			continue
		}
		stripped := name[len(visualPrefix):]
		if _, dropped := droppedKeys[stripped]; dropped {
			continue
		}
		extracted.Tensors[stripped] = tensor
	}
	if len(extracted.Tensors) == 0 {
		return 0, fmt.Errorf("checkpoint %s has no visual tower keys", inPath)
	}

	if err := extracted.Save(outPath); err != nil {
		return 0, fmt.Errorf("saving extracted checkpoint : %w", err)
	}
	return len(extracted.Tensors), nil
}

// Package checkpoint reads and writes model weights in the safetensors
// container format: an 8-byte little-endian header length, a JSON header
// mapping tensor names to dtype/shape/offsets, and the packed tensor data.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

const maxHeaderSize = 100 * 1024 * 1024 // Header length sanity bound

// Tensor is one named weight: its dtype, shape and raw packed data.
type Tensor struct {
	Dtype string  // safetensors dtype string (F32, F16, BF16, I64, ...)
	Shape []int64 // Tensor dimensions
	Data  []byte  // Packed tensor bytes
}

// Checkpoint is a loaded safetensors file.
type Checkpoint struct {
	Tensors  map[string]*Tensor
	Metadata map[string]string // The optional __metadata__ header block
}

type headerEntry struct {
	Dtype       string    `json:"dtype"`
	Shape       []int64   `json:"shape"`
	DataOffsets [2]uint64 `json:"data_offsets"`
}

// Load reads a safetensors file into memory.
func Load(path string) (*Checkpoint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s : %w", path, err)
	}
	if len(content) < 8 {
		return nil, fmt.Errorf("checkpoint %s is truncated", path)
	}
	headerSize := binary.LittleEndian.Uint64(content[:8])
	if headerSize > maxHeaderSize || 8+headerSize > uint64(len(content)) {
		return nil, fmt.Errorf("checkpoint %s has an invalid header length %d", path, headerSize)
	}
	headerBytes := content[8 : 8+headerSize]
	data := content[8+headerSize:]

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawHeader); err != nil {
		return nil, fmt.Errorf("unmarshalling checkpoint header : %w", err)
	}

	checkpoint := &Checkpoint{Tensors: make(map[string]*Tensor)}
	for name, raw := range rawHeader {
		if name == "__metadata__" {
			if err := json.Unmarshal(raw, &checkpoint.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling checkpoint metadata : %w", err)
			}
			continue
		}
		var entry headerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("unmarshalling tensor %s : %w", name, err)
		}
		begin, end := entry.DataOffsets[0], entry.DataOffsets[1]
		if begin > end || end > uint64(len(data)) {
			return nil, fmt.Errorf("tensor %s has offsets [%d, %d) outside the data block", name, begin, end)
		}
		checkpoint.Tensors[name] = &Tensor{
			Dtype: entry.Dtype,
			Shape: entry.Shape,
			Data:  data[begin:end],
		}
	}
	return checkpoint, nil
}

// Save writes the checkpoint as a safetensors file. Tensors are packed in
// sorted name order so the output layout is deterministic.
func (c *Checkpoint) Save(path string) error {
	names := make([]string, 0, len(c.Tensors))
	for name := range c.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(c.Metadata) > 0 {
		header["__metadata__"] = c.Metadata
	}
	offset := uint64(0)
	dataSize := 0
	for _, name := range names {
		tensor := c.Tensors[name]
		end := offset + uint64(len(tensor.Data))
		shape := tensor.Shape
		if shape == nil {
			shape = []int64{}
		}
		header[name] = headerEntry{
			Dtype:       tensor.Dtype,
			Shape:       shape,
			DataOffsets: [2]uint64{offset, end},
		}
		offset = end
		dataSize += len(tensor.Data)
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshalling checkpoint header : %w", err)
	}

	content := make([]byte, 0, 8+len(headerBytes)+dataSize)
	var sizeBytes [8]byte
	binary.LittleEndian.PutUint64(sizeBytes[:], uint64(len(headerBytes)))
	content = append(content, sizeBytes[:]...)
	content = append(content, headerBytes...)
	for _, name := range names {
		content = append(content, c.Tensors[name].Data...)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing checkpoint %s : %w", path, err)
	}
	return nil
}

package doctor

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/beevik/etree"
)

// GPU is a single device from the nvidia-smi inventory.
type GPU struct {
	Name        string // Product name
	MemoryTotal string // Total framebuffer memory, as reported (e.g. "24576 MiB")
	MemoryUsed  string // Used framebuffer memory, as reported
}

// Inventory is the parsed nvidia-smi report.
type Inventory struct {
	DriverVersion string
	CUDAVersion   string
	GPUs          []GPU
}

// parseInventory reads the XML report nvidia-smi -q -x produces.
func parseInventory(output []byte) (*Inventory, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return nil, fmt.Errorf("parsing nvidia-smi output : %w", err)
	}
	root := doc.SelectElement("nvidia_smi_log")
	if root == nil {
		return nil, fmt.Errorf("nvidia-smi output has no nvidia_smi_log element")
	}

	inventory := &Inventory{}
	if element := root.SelectElement("driver_version"); element != nil {
		inventory.DriverVersion = element.Text()
	}
	if element := root.SelectElement("cuda_version"); element != nil {
		inventory.CUDAVersion = element.Text()
	}
	for _, gpuElement := range root.SelectElements("gpu") {
		gpu := GPU{}
		if element := gpuElement.SelectElement("product_name"); element != nil {
			gpu.Name = element.Text()
		}
		if memory := gpuElement.SelectElement("fb_memory_usage"); memory != nil {
			if element := memory.SelectElement("total"); element != nil {
				gpu.MemoryTotal = element.Text()
			}
			if element := memory.SelectElement("used"); element != nil {
				gpu.MemoryUsed = element.Text()
			}
		}
		inventory.GPUs = append(inventory.GPUs, gpu)
	}
	return inventory, nil
}

// GPUs runs nvidia-smi and returns the parsed device inventory.
func GPUs(ctx context.Context) (*Inventory, error) {
	cmd := exec.CommandContext(ctx, "nvidia-smi", "-q", "-x")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running nvidia-smi : %w", err)
	}
	return parseInventory(output)
}

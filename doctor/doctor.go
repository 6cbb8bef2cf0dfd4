// Package doctor verifies that the python environment the driver runs in
// carries the packages the installation guide requires, and inventories the
// CUDA devices the driver would train on.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Requirement is one package the driver environment must provide.
type Requirement struct {
	Name       string // pip package name
	MinVersion string // Minimum acceptable version, empty for any
}

// DefaultRequirements is the package set from the driver's installation
// guide.
var DefaultRequirements = []Requirement{
	{Name: "torch", MinVersion: "1.10"},
	{Name: "torchvision", MinVersion: "0.11"},
	{Name: "fvcore"},
	{Name: "timm"},
	{Name: "decord"},
	{Name: "av"},
	{Name: "iopath"},
	{Name: "simplejson"},
	{Name: "psutil"},
	{Name: "opencv-python"},
	{Name: "tensorboard"},
	{Name: "scikit-learn"},
	{Name: "pandas"},
}

// State classifies one checked requirement.
type State string

const (
	StateOK       State = "ok"
	StateMissing  State = "missing"
	StateOutdated State = "outdated"
)

// PackageStatus is the check result for a single requirement.
type PackageStatus struct {
	Name      string // Requirement name
	Wanted    string // Minimum version, empty for any
	Installed string // Installed version, empty when missing
	State     State
}

type pipPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// normalizeName folds a package name the way pip does: lowercase, underscores
// and dots treated as dashes.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

// numericPrefix strips a version component down to its leading digits, so
// local suffixes like the cu117 in 2.0.1+cu117 do not affect comparison.
func numericPrefix(component string) int {
	end := 0
	for end < len(component) && component[end] >= '0' && component[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	value, err := strconv.Atoi(component[:end])
	if err != nil {
		return 0
	}
	return value
}

// CompareVersions compares two dotted version strings component by component,
// ignoring non-numeric suffixes. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	if plus := strings.IndexByte(a, '+'); plus >= 0 {
		a = a[:plus]
	}
	if plus := strings.IndexByte(b, '+'); plus >= 0 {
		b = b[:plus]
	}
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	length := len(aParts)
	if len(bParts) > length {
		length = len(bParts)
	}
	for i := 0; i < length; i++ {
		aValue, bValue := 0, 0
		if i < len(aParts) {
			aValue = numericPrefix(aParts[i])
		}
		if i < len(bParts) {
			bValue = numericPrefix(bParts[i])
		}
		if aValue < bValue {
			return -1
		}
		if aValue > bValue {
			return 1
		}
	}
	return 0
}

// parseInstalled parses pip's JSON package listing into a normalized
// name-to-version map.
func parseInstalled(output []byte) (map[string]string, error) {
	var packages []pipPackage
	if err := json.Unmarshal(output, &packages); err != nil {
		return nil, fmt.Errorf("unmarshalling pip list output : %w", err)
	}
	installed := make(map[string]string, len(packages))
	for _, pkg := range packages {
		installed[normalizeName(pkg.Name)] = pkg.Version
	}
	return installed, nil
}

// checkRequirements evaluates each requirement against the installed map.
func checkRequirements(requirements []Requirement, installed map[string]string) []PackageStatus {
	statuses := make([]PackageStatus, 0, len(requirements))
	for _, requirement := range requirements {
		status := PackageStatus{Name: requirement.Name, Wanted: requirement.MinVersion}
		version, ok := installed[normalizeName(requirement.Name)]
		switch {
		case !ok:
			status.State = StateMissing
		case requirement.MinVersion != "" && CompareVersions(version, requirement.MinVersion) < 0:
			status.Installed = version
			status.State = StateOutdated
		default:
			status.Installed = version
			status.State = StateOK
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Check lists the packages installed in the given python interpreter and
// evaluates the requirements against them.
func Check(ctx context.Context, python string, requirements []Requirement) ([]PackageStatus, error) {
	if python == "" {
		python = "python"
	}
	if len(requirements) == 0 {
		requirements = DefaultRequirements
	}
	cmd := exec.CommandContext(ctx, python, "-m", "pip", "list", "--format=json")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("listing installed packages : %w", err)
	}
	installed, err := parseInstalled(output)
	if err != nil {
		return nil, err
	}
	return checkRequirements(requirements, installed), nil
}

// Healthy reports whether every status is ok.
func Healthy(statuses []PackageStatus) bool {
	for _, status := range statuses {
		if status.State != StateOK {
			return false
		}
	}
	return true
}

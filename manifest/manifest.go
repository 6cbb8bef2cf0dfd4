// Package manifest loads and verifies the multilabel video manifests the
// driver trains and evaluates on. A manifest directory holds one CSV per
// split ({train,val,test}.csv); each line is a video path and a |-separated
// list of class ids, joined by a configurable separator. Labels are expanded
// to one-hot vectors, and test splits are expanded into one clip per
// ensemble-view/spatial-crop combination, mirroring how the driver's loader
// indexes clips.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Mode selects the manifest split.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeVal   Mode = "val"
	ModeTest  Mode = "test"
)

// Options mirrors the config keys the driver's loader consults.
type Options struct {
	Separator        string // Path/label separator within a line, defaults to a single space
	PathPrefix       string // Prefix joined onto every video path
	NumClasses       int    // Length of the one-hot label vector
	NumEnsembleViews int    // Temporal views per video in test mode
	NumSpatialCrops  int    // Spatial crops per view in test mode
}

// Clip is a single loadable sample: one video paired with its one-hot label
// vector and, in test mode, the view/crop it represents.
type Clip struct {
	Path          string    // Full video path, prefix applied
	Labels        []float32 // One-hot label vector of length NumClasses
	TemporalIndex int       // Ensemble view index, -1 in train mode
	SpatialIndex  int       // Spatial crop index, -1 in train mode
}

// Manifest is a fully expanded split.
type Manifest struct {
	Mode  Mode
	Clips []*Clip
}

// NumVideos returns the number of distinct videos behind the clip list.
func (m *Manifest) NumVideos(clipsPerVideo int) int {
	if clipsPerVideo <= 0 {
		return len(m.Clips)
	}
	return len(m.Clips) / clipsPerVideo
}

// Load reads and expands one manifest split from dir.
//
// Train and val splits pin the clip count to one per video; train samples
// randomly (-1/-1), val takes one deterministic view (0/1). Test splits
// expand each video into NumEnsembleViews * NumSpatialCrops clips, with the
// temporal index cycling slowest, the way the driver's loader derives its
// spatial/temporal sample indices.
func Load(dir string, mode Mode, options Options) (*Manifest, error) {
	switch mode {
	case ModeTrain, ModeVal, ModeTest:
	default:
		return nil, fmt.Errorf("split %q not supported", mode)
	}
	if options.NumClasses < 1 {
		return nil, fmt.Errorf("manifest needs a positive class count, got %d", options.NumClasses)
	}
	separator := options.Separator
	if separator == "" {
		separator = " "
	}

	numClips := 1
	views, crops := 1, 1
	if mode == ModeTest {
		views, crops = options.NumEnsembleViews, options.NumSpatialCrops
		if views < 1 || crops < 1 {
			return nil, fmt.Errorf("test split needs positive views and crops, got %d x %d", views, crops)
		}
		numClips = views * crops
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.csv", mode))
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest %s : %w", path, err)
	}
	defer file.Close()

	manifest := &Manifest{Mode: mode}
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		videoPath, labels, err := parseLine(line, separator, options.NumClasses)
		if err != nil {
			return nil, fmt.Errorf("parsing %s line %d : %w", path, lineNumber, err)
		}
		for idx := 0; idx < numClips; idx++ {
			clip := &Clip{
				Path:   filepath.Join(options.PathPrefix, videoPath),
				Labels: labels,
			}
			switch mode {
			case ModeTrain:
				clip.TemporalIndex, clip.SpatialIndex = -1, -1
			default:
				clip.TemporalIndex = idx / crops
				if crops > 1 {
					clip.SpatialIndex = idx % crops
				} else {
					clip.SpatialIndex = 1
				}
			}
			manifest.Clips = append(manifest.Clips, clip)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest %s : %w", path, err)
	}
	if len(manifest.Clips) == 0 {
		return nil, fmt.Errorf("failed to load dataset split %s from %s", mode, path)
	}
	return manifest, nil
}

// parseLine splits one manifest line into its path and one-hot label vector.
func parseLine(line, separator string, numClasses int) (string, []float32, error) {
	videoPath, labelPart, found := strings.Cut(line, separator)
	if !found || videoPath == "" || labelPart == "" {
		return "", nil, fmt.Errorf("expected path%slabels, got %q", separator, line)
	}
	oneHot := make([]float32, numClasses)
	for _, field := range strings.Split(labelPart, "|") {
		label, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return "", nil, fmt.Errorf("parsing label %q : %w", field, err)
		}
		if label < 0 || label >= numClasses {
			return "", nil, fmt.Errorf("label %d out of range for %d classes", label, numClasses)
		}
		oneHot[label] = 1
	}
	return videoPath, oneHot, nil
}

package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Verify spot-checks that the manifest's videos exist on disk and sniff as
// video content. It checks every distinct path when sample is zero or
// negative, otherwise the first sample distinct paths. The first missing or
// non-video file fails the check.
func (m *Manifest) Verify(ctx context.Context, sample int) error {
	seen := make(map[string]struct{})
	checked := 0
	for _, clip := range m.Clips {
		if sample > 0 && checked >= sample {
			break
		}
		if _, ok := seen[clip.Path]; ok {
			continue
		}
		seen[clip.Path] = struct{}{}
		checked++

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("verifying manifest : %w", err)
		}
		if _, err := os.Stat(clip.Path); err != nil {
			return fmt.Errorf("checking video %s : %w", clip.Path, err)
		}
		detected, err := mimetype.DetectFile(clip.Path)
		if err != nil {
			return fmt.Errorf("sniffing video %s : %w", clip.Path, err)
		}
		if !strings.HasPrefix(detected.String(), "video/") {
			return fmt.Errorf("video %s sniffed as %s", clip.Path, detected.String())
		}
	}
	return nil
}

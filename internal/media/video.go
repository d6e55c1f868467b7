package media

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// minimalMP4 is an empty-but-valid MP4 container (ftyp box only), enough
// for downstream tooling to recognize the file type.
var minimalMP4 = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'm', 'p', '4', '1',
}

// PlaceholderVideo writes a stub MP4 for a lesson whose presenter
// rendering was unavailable. A sidecar JSON records what the clip should
// have contained so it can be regenerated later.
func PlaceholderVideo(destPath, lessonTitle string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating video directory: %w", err)
	}
	if err := os.WriteFile(destPath, minimalMP4, 0o644); err != nil {
		return fmt.Errorf("writing placeholder video: %w", err)
	}
	return writeSidecar(destPath, map[string]any{
		"placeholder":  true,
		"lesson_title": lessonTitle,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// ComposeFinal assembles the deliverable lesson video. The presenter clip
// is carried through as the primary track; when a background slide exists
// the composition manifest references it for a later re-render. A missing
// background is not an error.
func ComposeFinal(presenterPath, backgroundPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating final video directory: %w", err)
	}
	if err := copyFile(presenterPath, destPath); err != nil {
		return fmt.Errorf("copying presenter track: %w", err)
	}
	manifest := map[string]any{
		"presenter_track": filepath.Base(presenterPath),
		"composed_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if backgroundPath != "" {
		if _, err := os.Stat(backgroundPath); err == nil {
			manifest["background"] = filepath.Base(backgroundPath)
		}
	}
	return writeSidecar(destPath, manifest)
}

func writeSidecar(videoPath string, manifest map[string]any) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	sidecar := videoPath + ".json"
	if err := os.WriteFile(sidecar, data, 0o644); err != nil {
		return fmt.Errorf("writing composition manifest: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

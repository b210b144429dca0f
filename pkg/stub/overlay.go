package stub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Overlay is the file format read by go build -overlay.
type Overlay struct {
	Replace map[string]string `json:"Replace"`
}

// WriteOverlay stubs target into dir and writes an overlay file mapping the
// target to its stub. It returns the overlay path.
func WriteOverlay(dir, target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", target, err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", target, err)
	}
	stubbed, err := Rewrite(abs, src)
	if err != nil {
		return "", err
	}

	stubPath := filepath.Join(dir, "stub_"+filepath.Base(abs))
	if err := os.WriteFile(stubPath, stubbed, 0o644); err != nil {
		return "", fmt.Errorf("writing stub: %w", err)
	}

	data, err := json.MarshalIndent(Overlay{Replace: map[string]string{abs: stubPath}}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding overlay: %w", err)
	}
	overlayPath := filepath.Join(dir, "overlay.json")
	if err := os.WriteFile(overlayPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing overlay: %w", err)
	}
	return overlayPath, nil
}

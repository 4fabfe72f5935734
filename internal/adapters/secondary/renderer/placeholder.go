package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// Placeholder draws the image shown in place of screenshots that have not
// been generated yet: a grey outline of a mitochondrion on a light
// background.
func Placeholder(size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	s := float64(size)

	dc := gg.NewContext(size, size)
	dc.SetRGB(0.95, 0.95, 0.95)
	dc.Clear()

	dc.SetLineWidth(s / 64)
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.DrawEllipse(s/2, s/2, s*0.35, s*0.18)
	dc.Stroke()

	// Cristae folds.
	dc.SetLineWidth(s / 128)
	for i := -2; i <= 2; i++ {
		x := s/2 + float64(i)*s*0.11
		dc.DrawLine(x, s/2-s*0.12, x, s/2+s*0.12)
	}
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// EnsurePlaceholder writes the placeholder to path unless a file is
// already there.
func EnsurePlaceholder(path string, size int) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := Placeholder(size)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create placeholder dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

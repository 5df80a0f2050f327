package textextract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// extractImage shells out to tesseract for OCR. A missing tesseract binary is
// treated like an unsupported format, not an error.
func extractImage(data []byte, fileName string) (*Result, error) {
	binPath, err := exec.LookPath("tesseract")
	if err != nil {
		return &Result{}, nil
	}

	tmp, err := os.CreateTemp("", "ocr-*"+filepath.Ext(fileName))
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp image: %w", err)
	}
	tmp.Close()

	output, err := exec.Command(binPath, tmp.Name(), "stdout", "-l", "eng").Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR: %w", err)
	}

	return &Result{
		Content: strings.TrimSpace(string(output)),
		Pages:   1,
	}, nil
}

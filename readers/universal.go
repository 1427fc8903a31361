// Package readers extracts plain text from document files for corpus
// ingestion and request uploads.
package readers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// UniversalReader converts the document formats the service accepts into
// plain text.
type UniversalReader struct{}

func (r *UniversalReader) CanRead(path string) bool {
	switch filepath.Ext(path) {
	case ".txt", ".docx", ".odt", ".pdf", ".xml":
		return true
	}

	return false
}

// ReadText extracts the text of a file on disk.
func (r *UniversalReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", path, err)
	}

	return res.Body, nil
}

// ExtractUpload extracts text from an uploaded file stream, using the
// file name to pick the converter. Unrecognized extensions are treated as
// plain text, matching how the service always accepted raw text uploads.
func (r *UniversalReader) ExtractUpload(src io.Reader, name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == ".txt" {
		buf, err := io.ReadAll(src)
		if err != nil {
			return "", fmt.Errorf("failed to read upload %s: %w", name, err)
		}

		return string(buf), nil
	}

	res, err := docconv.Convert(src, docconv.MimeTypeByExtension(name), true)
	if err != nil {
		return "", fmt.Errorf("failed to convert upload %s: %w", name, err)
	}

	return res.Body, nil
}

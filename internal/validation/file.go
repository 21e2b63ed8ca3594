package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// DetectUpload checks the upload size and sniffs its content type from the
// first 512 bytes. Empty files pass; rejecting them is a domain decision.
func DetectUpload(header *multipart.FileHeader, maxSize int64) (string, error) {
	if maxSize > 0 && header.Size > maxSize {
		return "", fmt.Errorf("file too large: maximum size is %d MB", maxSize/(1<<20))
	}
	if header.Size == 0 {
		return "application/octet-stream", nil
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return http.DetectContentType(buffer[:n]), nil
}

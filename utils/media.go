package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUploadTooLarge   = errors.New("uploaded file is too large")
	ErrUnsupportedImage = errors.New("uploaded file is not a supported image")
)

// imageExt maps sniffed content types to the extension files are stored with.
var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveUploadedImage writes src under root with a random name and returns the
// stored name. Content is sniffed and the extension follows the sniffed type,
// never the client's file name. Size is capped at maxBytes.
func SaveUploadedImage(root string, src io.Reader, maxBytes int64) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]
	ext, ok := imageExt[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedImage
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create media root: %w", err)
	}
	name := strings.ReplaceAll(uuid.New().String(), "-", "") + ext
	dst := filepath.Join(root, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer out.Close()

	lr := &io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), src), N: maxBytes + 1}
	written, err := io.Copy(out, lr)
	if err == nil && written > maxBytes {
		err = ErrUploadTooLarge
	}
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	return name, nil
}

// MediaURL is the public address of a stored upload; empty names stay empty.
func MediaURL(siteURL, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(siteURL, "/") + "/media/" + name
}

// RemoveMedia deletes a stored upload. Names never contain a path.
func RemoveMedia(root, name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid media name %q", name)
	}
	err := os.Remove(filepath.Join(root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// PostImageDir is where post images live, relative to the media root.
const PostImageDir = "posts"

// maxImagePixels bounds the decoded size of an upload.
const maxImagePixels = 40_000_000

var (
	ErrImageTooLarge = errors.New("image is too large")
	ErrNotAnImage    = errors.New("file is not a valid image")
)

var imageExtensions = map[string]string{
	"gif":  ".gif",
	"jpeg": ".jpg",
	"png":  ".png",
	"bmp":  ".bmp",
	"webp": ".webp",
}

// SaveImage validates an uploaded image and stores it under root/posts with a random name.
// It returns the path relative to root, always slash separated.
func SaveImage(root string, header *multipart.FileHeader, maxSize int64) (string, int64, error) {
	if maxSize > 0 && header.Size > maxSize {
		return "", 0, ErrImageTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return "", 0, ErrNotAnImage
	}
	ext, ok := imageExtensions[format]
	if !ok {
		return "", 0, ErrNotAnImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return "", 0, ErrImageTooLarge
	}
	// The header alone proves nothing; the pixel data has to decode too.
	if err := rewind(file); err != nil {
		return "", 0, err
	}
	if _, _, err := image.Decode(file); err != nil {
		return "", 0, ErrNotAnImage
	}
	if err := rewind(file); err != nil {
		return "", 0, err
	}

	dir := filepath.Join(root, PostImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload directory: %w", err)
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	limit := maxSize
	if limit <= 0 {
		limit = header.Size
	}
	written, err := io.Copy(dst, io.LimitReader(file, limit+1))
	if err == nil && maxSize > 0 && written > maxSize {
		err = ErrImageTooLarge
	}
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", 0, err
	}
	return path.Join(PostImageDir, name), written, nil
}

func rewind(file io.Seeker) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	return nil
}

// RemoveMedia deletes a file stored under root. Missing files are not an error.
func RemoveMedia(root, rel string) error {
	if rel == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("refusing to remove %q outside media root", rel)
	}
	err := os.Remove(filepath.Join(root, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MediaURL joins the public media prefix with a stored relative path.
func MediaURL(prefix, rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(rel, "/")
}

package utils

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const uploadBaseDir = "uploads"

// SaveEventCover stores an uploaded event cover image and generates a
// 640px-wide thumbnail next to it. Returns the relative URLs of both.
func SaveEventCover(file *multipart.FileHeader) (coverURL, thumbnailURL string, err error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", "", fmt.Errorf("unsupported image type: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open upload: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %v", err)
	}

	filename := uuid.New().String() + ext
	coverPath := filepath.Join(uploadBaseDir, "events", filename)
	if err := os.MkdirAll(filepath.Dir(coverPath), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %v", err)
	}
	if err := os.WriteFile(coverPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save cover: %v", err)
	}

	// Resize to max width of 640px while maintaining aspect ratio
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("failed to decode cover: %v", err)
	}
	resized := imaging.Resize(img, 640, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return "", "", fmt.Errorf("failed to encode thumbnail: %v", err)
	}

	thumbnailFilename := strings.TrimSuffix(filename, ext) + "_thumb.jpg"
	thumbnailPath := filepath.Join(uploadBaseDir, "thumbnails", thumbnailFilename)
	if err := os.MkdirAll(filepath.Dir(thumbnailPath), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create thumbnail directory: %v", err)
	}
	if err := os.WriteFile(thumbnailPath, buf.Bytes(), 0644); err != nil {
		return "", "", fmt.Errorf("failed to save thumbnail: %v", err)
	}

	return "/" + filepath.ToSlash(coverPath), "/" + filepath.ToSlash(thumbnailPath), nil
}

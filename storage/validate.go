package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"journal-review-api/models"

	"github.com/gabriel-vasile/mimetype"
)

const mb = 1024 * 1024

// maxSizes are the upload limits per file extension.
var maxSizes = map[string]int64{
	".pdf":  50 * mb,
	".zip":  100 * mb,
	".json": 10 * mb,
	".car":  10 * mb,
}

// sniffedTypes must match the detected content for these extensions.
var sniffedTypes = map[string]string{
	".pdf": "application/pdf",
	".zip": "application/zip",
}

var kindExtensions = map[models.ArtifactKind][]string{
	models.ArtifactBlindedFile: {".pdf"},
	models.ArtifactFullFile:    {".pdf"},
	models.ArtifactLatex:       {".zip"},
	models.ArtifactCar:         {".json", ".car"},
}

// MaxUploadSize is the largest file any artifact slot accepts.
const MaxUploadSize = 100 * mb

// AllowedExtensions returns the extensions accepted for a file kind.
func AllowedExtensions(kind models.ArtifactKind) []string {
	return kindExtensions[kind]
}

// CheckName validates the extension and declared size of an upload before
// any bytes are read, and returns the lower-cased extension.
func CheckName(kind models.ArtifactKind, fileName string, size int64) (string, error) {
	allowed, ok := kindExtensions[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s is not a file artifact", ErrInvalidUpload, kind)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	match := false
	for _, a := range allowed {
		if a == ext {
			match = true
			break
		}
	}
	if !match {
		return "", fmt.Errorf("%w: %s must be one of %s", ErrInvalidUpload, kind, strings.Join(allowed, ", "))
	}
	if size > maxSizes[ext] {
		return "", fmt.Errorf("%w: maximum size for %s files is %d MB", ErrInvalidUpload,
			strings.ToUpper(strings.TrimPrefix(ext, ".")), maxSizes[ext]/mb)
	}
	return ext, nil
}

// CheckContent sniffs data and rejects PDF or ZIP uploads whose content does
// not match the extension. It returns the MIME type to store.
func CheckContent(ext string, data []byte) (string, error) {
	if int64(len(data)) > maxSizes[ext] {
		return "", fmt.Errorf("%w: maximum size for %s files is %d MB", ErrInvalidUpload,
			strings.ToUpper(strings.TrimPrefix(ext, ".")), maxSizes[ext]/mb)
	}
	detected := mimetype.Detect(data)
	want, strict := sniffedTypes[ext]
	if !strict {
		if ext == ".json" && detected.Is("application/json") {
			return "application/json", nil
		}
		return detected.String(), nil
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return want, nil
		}
	}
	return "", fmt.Errorf("%w: file content (%s) does not match extension %s", ErrInvalidUpload, detected.String(), ext)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeName strips directories and unusual characters from a client file name.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "\x00", "")
	name = unsafeName.ReplaceAllString(strings.TrimSpace(name), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file"
	}
	if len(name) > 200 {
		ext := filepath.Ext(name)
		name = name[:200-len(ext)] + ext
	}
	return name
}

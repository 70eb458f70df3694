package services

import (
	"path/filepath"
	"strings"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// photoExtension returns the lower-cased extension of filename, or
// ErrUnsupportedPhoto when it is not an image type we accept.
func photoExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !photoExtensions[ext] {
		return "", ErrUnsupportedPhoto
	}
	return ext, nil
}

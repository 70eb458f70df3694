package models

import (
	"encoding/json"
	"strings"
)

// EncodeEvidence stores a single photo as its bare URL and several photos as
// a JSON array, the two shapes the photo_url column has always held.
func EncodeEvidence(urls []string) (string, error) {
	switch len(urls) {
	case 0:
		return "", nil
	case 1:
		return urls[0], nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeEvidence accepts either stored shape. A value that looks like an array
// but does not parse is treated as one opaque URL.
func DecodeEvidence(stored string) []string {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return nil
	}
	if strings.HasPrefix(stored, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(stored), &urls); err == nil {
			return urls
		}
	}
	return []string{stored}
}

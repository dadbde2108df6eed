package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllowListFile is the YAML shape accepted by ALLOWED_TYPES_FILE.
//
//	allowed_types:
//	  application/pdf: PDF
//	  text/plain: Text
//	max_upload_bytes: 52428800
type AllowListFile struct {
	Types          map[string]string `yaml:"allowed_types"`
	MaxUploadBytes int64             `yaml:"max_upload_bytes"`
}

// DefaultAllowedTypes returns the media types accepted when nothing is configured.
func DefaultAllowedTypes() map[string]string {
	return map[string]string{
		"application/pdf": "PDF",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "DOCX",
		"text/plain":    "Text",
		"text/markdown": "Markdown",
	}
}

// LoadAllowListFile reads and validates an allow-list file.
func LoadAllowListFile(path string) (AllowListFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AllowListFile{}, fmt.Errorf("read allow-list %s: %w", path, err)
	}
	var file AllowListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return AllowListFile{}, fmt.Errorf("parse allow-list %s: %w", path, err)
	}
	types := make(map[string]string, len(file.Types))
	for mediaType, label := range file.Types {
		key := strings.ToLower(strings.TrimSpace(mediaType))
		if key == "" {
			continue
		}
		types[key] = strings.TrimSpace(label)
	}
	if len(types) == 0 {
		return AllowListFile{}, fmt.Errorf("allow-list %s: allowed_types is empty", path)
	}
	file.Types = types
	return file, nil
}

// parseAllowedTypes parses "type=Label,type2=Label2". A missing label reuses the type.
func parseAllowedTypes(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range splitAndTrim(raw) {
		mediaType, label, _ := strings.Cut(part, "=")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		label = strings.TrimSpace(label)
		if mediaType == "" {
			continue
		}
		if label == "" {
			label = mediaType
		}
		out[mediaType] = label
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ALLOWED_TYPES has no media types")
	}
	return out, nil
}

package backup

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultManifestPath is where the manifest is written when none is configured.
const DefaultManifestPath = "uploaded_photos.json"

// UploadRecord describes one uploaded file.
type UploadRecord struct {
	FileName string `json:"file_name"`
	Size     string `json:"size"` // size class of the transferred variant
	URL      string `json:"url"`
}

// EncodeManifest renders records as an indented JSON array. A nil slice
// encodes as [].
func EncodeManifest(records []UploadRecord) ([]byte, error) {
	if records == nil {
		records = []UploadRecord{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// WriteManifest replaces the file at path with records.
func WriteManifest(path string, records []UploadRecord) error {
	data, err := EncodeManifest(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) ([]UploadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	records, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseManifest decodes manifest bytes, such as an archived copy.
func ParseManifest(data []byte) ([]UploadRecord, error) {
	var records []UploadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return records, nil
}

package messages

import (
	"encoding/json"
	"fmt"
)

// Content types form a closed set; the metadata column is a tagged union
// keyed by them.
const (
	// ContentTypeText carries plain text and no metadata.
	ContentTypeText = "text"
	// ContentTypeImage carries an image reference in ImageMetadata;
	// content holds an optional caption.
	ContentTypeImage = "image"
)

// ImageMetadata is the metadata shape for ContentTypeImage.
type ImageMetadata struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// encodeMetadata validates that the metadata value matches the content
// type tag and marshals it. Text messages carry none.
func encodeMetadata(contentType string, metadata any) ([]byte, error) {
	switch contentType {
	case ContentTypeText:
		if metadata != nil {
			return nil, fmt.Errorf("content type %q carries no metadata", contentType)
		}
		return nil, nil
	case ContentTypeImage:
		meta, ok := metadata.(ImageMetadata)
		if !ok {
			return nil, fmt.Errorf("content type %q requires ImageMetadata, got %T", contentType, metadata)
		}
		if meta.URL == "" {
			return nil, fmt.Errorf("image metadata requires a url")
		}
		return json.Marshal(meta)
	default:
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}
}

// decodeMetadata is the inverse of encodeMetadata for read paths.
func decodeMetadata(contentType string, raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch contentType {
	case ContentTypeImage:
		var meta ImageMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	default:
		return nil, nil
	}
}

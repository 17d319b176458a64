package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMetadataTagging(t *testing.T) {
	// text carries no metadata
	raw, err := encodeMetadata(ContentTypeText, nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	_, err = encodeMetadata(ContentTypeText, ImageMetadata{URL: "x"})
	assert.Error(t, err)

	// image requires ImageMetadata with a url
	_, err = encodeMetadata(ContentTypeImage, nil)
	assert.Error(t, err)
	_, err = encodeMetadata(ContentTypeImage, ImageMetadata{})
	assert.Error(t, err)

	raw, err = encodeMetadata(ContentTypeImage, ImageMetadata{URL: "https://cdn.example.com/a.jpg", Width: 800})
	require.NoError(t, err)

	decoded, err := decodeMetadata(ContentTypeImage, raw)
	require.NoError(t, err)
	meta, ok := decoded.(ImageMetadata)
	require.True(t, ok)
	assert.Equal(t, 800, meta.Width)

	_, err = encodeMetadata("carrier-pigeon", nil)
	assert.Error(t, err)
}

package qrcode_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrymomot/tiqrkit/pkg/qrcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "tiqrauth://example.org/SESSIONKEY/12345678/sp.example.org/2"

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestEncodePNG(t *testing.T) {
	t.Parallel()

	png, err := qrcode.EncodePNG(testURI, 0)
	require.NoError(t, err)
	require.Greater(t, len(png), len(pngMagic))
	assert.Equal(t, pngMagic, png[:len(pngMagic)])
}

func TestEncodePNG_EmptyContent(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "   "} {
		_, err := qrcode.EncodePNG(content, 128)
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "challenge.png")
	require.NoError(t, qrcode.WriteFile(testURI, 128, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, data[:len(pngMagic)])
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	art, err := qrcode.Terminal(testURI)
	require.NoError(t, err)
	assert.NotEmpty(t, art)

	_, err = qrcode.Terminal("")
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}

package qrcode

import (
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when the content is empty or whitespace.
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrGenerationFailed is returned when QR code generation fails.
	ErrGenerationFailed = errors.New("failed to generate QR code")
)

// DefaultSize is the image edge in pixels used when no size is given.
const DefaultSize = 256

// EncodePNG renders the content, typically a challenge URI, as a PNG image.
func EncodePNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return png, nil
}

// WriteFile renders the content as a PNG file at path.
func WriteFile(content string, size int, path string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	if err := skipqrcode.WriteFile(content, skipqrcode.Medium, size, path); err != nil {
		return errors.Join(ErrGenerationFailed, err)
	}
	return nil
}

// Terminal renders the content as half-height block characters suitable
// for scanning straight off a terminal.
func Terminal(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	qr, err := skipqrcode.New(content, skipqrcode.Medium)
	if err != nil {
		return "", errors.Join(ErrGenerationFailed, err)
	}
	return qr.ToSmallString(false), nil
}

// Package qrcode renders share links as PNG QR codes.
package qrcode

import (
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels used when size is not positive.
const DefaultSize = 512

// PNG encodes content as a medium error-correction QR code.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	code, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

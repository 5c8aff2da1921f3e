package media

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const imageMimePrefix = "image/"

var contentTypesByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

func parseMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, imageMimePrefix)
}

// sniffImage detects the content type of data and requires an image.
func sniffImage(data []byte) (*mimetype.MIME, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if isImage(m.String()) {
			return detected, nil
		}
	}
	return nil, fmt.Errorf("detected %s", detected.String())
}

// ContentTypeForPath maps a served file name to its content type.
func ContentTypeForPath(name string) string {
	if ct, ok := contentTypesByExt[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
)

// ReadMultipartFile reads one form file, rejecting bodies above maxBytes.
func ReadMultipartFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, string, error) {
	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d bytes", maxBytes)).
				WithDetails(map[string]string{field: "too large"})
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, field+" is required").
			WithDetails(map[string]string{field: "is required"})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d bytes", maxBytes)).
			WithDetails(map[string]string{field: "too large"})
	}
	return data, header.Filename, nil
}

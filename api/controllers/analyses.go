package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/calorielens-backend/api/middleware"
	"github.com/angelmondragon/calorielens-backend/api/responses"
	"github.com/angelmondragon/calorielens-backend/internal/analysis"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
)

const (
	imageFormField = "image"
	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 1 << 20
)

// AnalyzePhoto accepts a photo either as the multipart field "image" or as a
// raw image/* body and returns its nutrition estimate.
func AnalyzePhoto(svc analysis.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		image, err := readUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detected := mimetype.Detect(image)
		if !strings.HasPrefix(detected.String(), "image/") {
			err := pkgerrors.New(pkgerrors.CodeValidation, "uploaded file is not an image").
				WithDetails(map[string]any{"detected_type": detected.String()})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"image_bytes": len(image),
				"mime_type":   detected.String(),
			})
		}

		result, err := svc.AnalyzeForUser(ctx, middleware.UserIDFromContext(ctx), image, detected.String())
		if err != nil {
			if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				// The client went away; nothing useful can be written.
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LatestAnalysis returns the user's last recorded analysis.
func LatestAnalysis(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}
		result, err := svc.Latest(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var src io.Reader
	switch {
	case mediaType == "multipart/form-data":
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		}
		file, _, err := r.FormFile(imageFormField)
		if err != nil {
			if tooLarge(err) {
				return nil, uploadTooLarge(maxBytes)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field \"image\" is required")
		}
		defer file.Close()
		src = file
	case mediaType == "" || strings.HasPrefix(mediaType, "image/") || mediaType == "application/octet-stream":
		src = r.Body
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnsupported, "send the photo as multipart/form-data or an image/* body").
			WithDetails(map[string]any{"content_type": mediaType})
	}

	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		if tooLarge(err) {
			return nil, uploadTooLarge(maxBytes)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, uploadTooLarge(maxBytes)
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	return data, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func uploadTooLarge(maxBytes int64) error {
	return pkgerrors.New(pkgerrors.CodeTooLarge, "image exceeds the upload limit").
		WithDetails(map[string]any{"max_bytes": maxBytes})
}

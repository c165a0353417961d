package storage

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// MaxImageBytes is the default image size limit (5 MiB).
const MaxImageBytes int64 = 5 * 1024 * 1024

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// AllowedImageType reports whether contentType may be attached to a message.
func AllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[normalizeContentType(contentType)]
	return ok
}

// DetectContentType sniffs data. The declared type is only consulted when
// there are no bytes to inspect, as for the size pre-check of an upload.
func DetectContentType(declared string, data []byte) string {
	if len(data) == 0 {
		return normalizeContentType(declared)
	}
	return normalizeContentType(mimetype.Detect(data).String())
}

// CheckImage applies the size limit first and the type allow-list second.
// The bytes decide the type: a declared type they contradict is rejected.
// It returns the effective content type.
func CheckImage(size int64, declared string, data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	if size > maxBytes {
		return "", apperrors.NewRejection(apperrors.CodeImageTooLarge,
			fmt.Sprintf("image must be %d MB or smaller", maxBytes/(1024*1024)),
			map[string]any{"size": size, "max": maxBytes})
	}
	contentType := DetectContentType(declared, data)
	if !AllowedImageType(contentType) {
		return "", apperrors.NewRejection(apperrors.CodeImageUnsupported,
			"only JPEG, PNG and GIF images are allowed",
			map[string]any{"content_type": contentType})
	}
	if want := normalizeContentType(declared); want != "" && want != contentType {
		return "", apperrors.NewRejection(apperrors.CodeImageUnsupported,
			"image content does not match its declared type",
			map[string]any{"declared": want, "content_type": contentType})
	}
	return contentType, nil
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" || ct == "image/pjpeg" {
		return "image/jpeg"
	}
	return ct
}

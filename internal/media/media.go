// Package media stores uploaded listing images. Rows keep only the object
// key; the Storage owns the bytes.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("media: object not found")

type Storage interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Processor rewrites image bytes before they are stored, e.g. to bound their size.
type Processor interface {
	Process(data []byte) ([]byte, error)
}

// imageExts maps the image types http.DetectContentType reports to the
// extension stored in the key.
var imageExts = map[string]string{
	"image/bmp":    ".bmp",
	"image/gif":    ".gif",
	"image/jpeg":   ".jpg",
	"image/png":    ".png",
	"image/webp":   ".webp",
	"image/x-icon": ".ico",
}

// UploadKey derives the object key from the upload time and the sniffed
// content type. The client's file name never reaches the key.
func UploadKey(contentType string, now time.Time) string {
	return fmt.Sprintf("%d_%s%s", now.Unix(), uuid.New().String(), imageExts[contentType])
}

// CleanURL joins a base with a key, escaping spaces and other unsafe bytes.
func CleanURL(base, key string) string {
	if strings.Contains(base, "%s") {
		return cleanURL(fmt.Sprintf(base, key))
	}
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return cleanURL(base + key)
}

func cleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}

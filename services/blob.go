package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBlobsDisabled  = errors.New("image uploads are not configured")
	ErrInvalidDataURL = errors.New("invalid data url")
	ErrNotAnImage     = errors.New("only images can be uploaded")
)

const MaxUploadBytes = 5 << 20

// BlobStore holds user uploaded images and hands back the URL they are served from.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (url string, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// DataURL is a decoded "data:<mime>;base64,<payload>" string as sent by the app.
type DataURL struct {
	ContentType string
	Ext         string
	Data        []byte
}

func DecodeDataURL(raw string) (*DataURL, error) {
	meta, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURL
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotAnImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidDataURL
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: image is larger than %d bytes", ErrInvalidDataURL, MaxUploadBytes)
	}
	return &DataURL{
		ContentType: contentType,
		Ext:         extensionFor(contentType),
		Data:        data,
	}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		return "." + sub
	}
	return ""
}

// UploadDataURL decodes the data url and stores it under prefix with a random name.
func UploadDataURL(ctx context.Context, store BlobStore, prefix string, raw string) (string, error) {
	if store == nil {
		return "", ErrBlobsDisabled
	}
	decoded, err := DecodeDataURL(raw)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.NewString(), decoded.Ext)
	return store.Put(ctx, key, decoded.ContentType, decoded.Data)
}

func publicURL(base string, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// StorageBucket stores blobs in the Firebase project's Cloud Storage bucket.
type StorageBucket struct {
	*storage.BucketHandle
	publicBase string
}

func NewStorageBucket(ctx context.Context, app *firebase.App, bucketName string, publicBase string) (*StorageBucket, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucketHandle, err := client.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://storage.googleapis.com/%s", bucketName)
	}

	return &StorageBucket{
		BucketHandle: bucketHandle,
		publicBase:   publicBase,
	}, nil
}

func (sb *StorageBucket) Put(ctx context.Context, blobName string, contentType string, data []byte) (string, error) {
	writer := sb.Object(blobName).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=31536000"
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return publicURL(sb.publicBase, blobName), nil
}

func (sb *StorageBucket) Exists(ctx context.Context, blobName string) (bool, error) {
	if len(blobName) == 0 {
		return false, nil
	}
	handle := sb.Object(blobName)
	if _, err := handle.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (sb *StorageBucket) Delete(ctx context.Context, blobName string) error {
	if err := sb.Object(blobName).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

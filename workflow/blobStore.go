package workflow

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/coraeos/obari_backend/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BlobStore mirrors equals snapshots to content-addressed object storage.
// PutIfAbsent is write-once: an already-existing object is success, not an
// error, matching the snapshot idempotency contract.
type BlobStore interface {
	PutIfAbsent(ctx context.Context, objectName string, data []byte) error
}

// GCSBlobStore writes snapshot objects with a does-not-exist precondition so
// the bucket enforces write-once at the content address.
type GCSBlobStore struct {
	bucket string
}

// NewSnapshotBlobStore returns the configured blob store, or nil when blob
// mirroring is disabled. A nil BlobStore is valid everywhere and means
// "database record only".
func NewSnapshotBlobStore() BlobStore {
	if !config.SnapshotBlobMirror() {
		return nil
	}
	bucket := config.SnapshotBucket()
	if bucket == "" {
		return nil
	}
	return &GCSBlobStore{bucket: bucket}
}

func gcsClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (service account / GOOGLE_APPLICATION_CREDENTIALS).
	// Explicit JSON via GCS_CREDENTIALS_JSON for local runs.
	if credJSON := strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")); credJSON != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func (s *GCSBlobStore) PutIfAbsent(ctx context.Context, objectName string, data []byte) error {
	client, err := gcsClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	obj := client.Bucket(s.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			// Object already exists at this content address: idempotent no-op.
			return nil
		}
		return err
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusPreconditionFailed
	}
	return false
}

package config

import (
	"os"
	"strings"
)

// SnapshotBlobMirror enables mirroring equals snapshots to object storage in
// addition to the database record. The object is written with a
// does-not-exist precondition so the content address stays write-once.
//
// Set via env:
// - SNAPSHOT_BLOB_MIRROR=true
// - SNAPSHOT_BUCKET=<bucket name>
func SnapshotBlobMirror() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SNAPSHOT_BLOB_MIRROR")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func SnapshotBucket() string {
	return strings.TrimSpace(os.Getenv("SNAPSHOT_BUCKET"))
}

// DemoEndpointsEnabled gates the in-memory OBARI demo endpoints
// (Active/Invoice/Report records). These are single-process stubs with no
// durability; keep them off in production.
//
// Set via env:
// - OBARI_DEMO_ENDPOINTS=true
func DemoEndpointsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OBARI_DEMO_ENDPOINTS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

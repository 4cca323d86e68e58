package blobstore

import (
	"fmt"
	"strings"
)

// BlobKey is the content-addressed location of a tenant's blob.
func BlobKey(tenantID, hash, ext string) string {
	return fmt.Sprintf("%s/blobs/%s.%s", tenantID, hash, strings.TrimPrefix(ext, "."))
}

// BuildKey is the location of a versioned artifact of one build.
func BuildKey(tenantID, buildID, name string) string {
	return fmt.Sprintf("%s/builds/%s/%s", tenantID, buildID, name)
}

// ProjectPointerKey is the project-wide live pointer.
func ProjectPointerKey(tenantID string) string {
	return tenantID + "/latest.json"
}

// HostPointerKey is the live pointer read by the edge for one hostname.
func HostPointerKey(host string) string {
	return "hosts/" + host + "/latest.json"
}

// SourceKey is where repository-backed page sources are stored.
func SourceKey(tenantID, sourceKey string) string {
	return tenantID + "/sources/" + strings.TrimLeft(sourceKey, "/")
}

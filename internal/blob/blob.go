// Package blob selects and re-exports a blob storage backend for pinning
// collectible content.
package blob

import (
	"context"
	"fmt"
	"os"

	"gardencore/internal/blob/core"
	fsblob "gardencore/internal/infra/blob/fs"
	memblob "gardencore/internal/infra/blob/memory"
	s3blob "gardencore/internal/infra/blob/s3"
)

// Re-exported abstractions so callers depend on a single package.
type (
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	Driver     = core.Driver
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Open selects a blob.Store implementation using environment variables.
//
//	GARDENCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	GARDENCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 driver package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("GARDENCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fsblob.New(os.Getenv("GARDENCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3blob.OpenFromEnv(ctx)
	case DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound   = errors.New("storage: file not found")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// ObjectInfo describes a stored file for listing consumers such as the
// retention janitor.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// UploadKey builds the storage key for an uploaded source file. Each upload
// lives in its own id-scoped directory so identically named files never
// collide.
func UploadKey(fileID, filename string) string {
	return "uploads/" + fileID + "/" + filename
}

// OutputKey builds the storage key for a finished job artifact.
func OutputKey(jobID, filename string) string {
	return "processed/" + jobID + "/" + filename
}

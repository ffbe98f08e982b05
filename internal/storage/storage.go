package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates the requested object does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the durable blob store for template and instance archives.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Get returns the full content of an object, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores an object, overwriting any existing content.
	Put(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object is present without fetching it.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under a prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

const (
	templatePrefix = "templates/"
	instancePrefix = "instances/"
	archiveSuffix  = ".zip"
)

// TemplateKey returns the object key for a template archive.
func TemplateKey(name string) string {
	return templatePrefix + name + archiveSuffix
}

// InstanceKey returns the object key for a saved instance archive.
func InstanceKey(instanceID string) string {
	return instancePrefix + instanceID + archiveSuffix
}

// TemplatePrefix is the key prefix under which template archives live.
func TemplatePrefix() string {
	return templatePrefix
}

// NameFromKey extracts the template or instance name from an archive key.
// Returns "" if the key does not look like an archive key.
func NameFromKey(key string) string {
	name := key
	switch {
	case strings.HasPrefix(name, templatePrefix):
		name = strings.TrimPrefix(name, templatePrefix)
	case strings.HasPrefix(name, instancePrefix):
		name = strings.TrimPrefix(name, instancePrefix)
	default:
		return ""
	}
	if !strings.HasSuffix(name, archiveSuffix) {
		return ""
	}
	return strings.TrimSuffix(name, archiveSuffix)
}

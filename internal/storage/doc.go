// Package storage provides the durable object store that holds template and
// saved-instance archives.
//
// Archives live under two key prefixes:
//
//	templates/<name>.zip   packaged project skeletons
//	instances/<id>.zip     saved instance archives
//
// ObjectStore is the narrow interface consumed by the template repository and
// the save/resume engine. BucketStore implements it against any S3-compatible
// bucket; MemStore is an in-memory implementation for tests.
package storage

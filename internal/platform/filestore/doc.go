// Package filestore keeps attachment contents on a filesystem, one
// directory per task, behind the store.BlobStore interface.
package filestore

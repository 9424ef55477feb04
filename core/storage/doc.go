// Package storage wraps the MinIO client for reading package archives from
// S3 or MinIO.
//
// Only the operations package sync needs are exposed, which keeps the Client
// interface small enough to mock (see core/storage/mocks).
//
//	client, err := storage.NewClient(cfg.Storage)
//	ok, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage

// Package s3 provides a blobstore.Store backed by Amazon S3.
//
// Writes go through the multipart upload manager so that large index blobs
// are uploaded in parallel parts.
package s3

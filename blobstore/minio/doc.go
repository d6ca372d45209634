// Package minio provides a blobstore.Store for MinIO and S3-compatible
// object stores.
//
// Example:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//		Secure: false,
//	})
//	if err != nil {
//		return err
//	}
//	store := annkitminio.NewStore(client, "indexes", "prod/")
package minio

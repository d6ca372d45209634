package cli

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/annkit"
	"github.com/hupe1980/annkit/blobstore"
	"github.com/hupe1980/annkit/blobstore/minio"
	"github.com/hupe1980/annkit/blobstore/s3"
	"github.com/hupe1980/annkit/catalog"
	"github.com/hupe1980/annkit/catalog/ddb"
	"github.com/hupe1980/annkit/codec"
	"github.com/hupe1980/annkit/config"
	"github.com/hupe1980/annkit/persist"
	"github.com/hupe1980/annkit/resource"
)

// openPersist builds a persist.Store from the configured backends.
func openPersist(ctx context.Context, cfg config.Config, logger *annkit.Logger) (*persist.Store, error) {
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	compression, err := codec.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return persist.New(blobs, cat, func(o *persist.Options) {
		o.Compression = compression
		o.Limiter = resource.NewIOLimiter(cfg.IOLimitBytesPerSec)
		o.Logger = logger.Logger
	}), nil
}

func openBlobStore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "local":
		return blobstore.NewLocalStore(cfg.BlobRoot), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3.NewStore(awss3.NewFromConfig(awsCfg), cfg.BlobBucket, cfg.BlobRoot), nil
	case "minio":
		client, err := miniogo.New(cfg.MinioEndpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, cfg.BlobBucket, cfg.BlobRoot), nil
	default:
		return nil, fmt.Errorf("%w: blob backend %q", config.ErrInvalidBackend, cfg.BlobBackend)
	}
}

func openCatalog(ctx context.Context, cfg config.Config) (catalog.Catalog, error) {
	switch cfg.CatalogBackend {
	case "memory":
		return catalog.NewMemory(), nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return ddb.New(dynamodb.NewFromConfig(awsCfg), cfg.CatalogTable), nil
	default:
		return nil, fmt.Errorf("%w: catalog backend %q", config.ErrInvalidBackend, cfg.CatalogBackend)
	}
}

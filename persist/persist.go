package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/annkit"
	"github.com/hupe1980/annkit/blobstore"
	"github.com/hupe1980/annkit/catalog"
	"github.com/hupe1980/annkit/codec"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/resource"
)

// ErrKeyMismatch is returned by Save when the node does not match the key it is saved under.
var ErrKeyMismatch = errors.New("persist: node does not match key")

// Options configures a Store.
type Options struct {
	// Prefix is prepended to every object name.
	Prefix string

	// Compression is applied to the blob envelope.
	Compression codec.Compression

	// Limiter throttles blob transfers. Nil means unlimited.
	Limiter *resource.IOLimiter

	Logger *slog.Logger

	// Now returns the time recorded in UpdatedAt.
	Now func() time.Time
}

// DefaultOptions contains the default options.
var DefaultOptions = Options{
	Prefix:      "indexes/",
	Compression: codec.CompressionZSTD,
	Logger:      slog.New(slog.DiscardHandler),
	Now:         time.Now,
}

// Store persists nodes.
type Store struct {
	blobs   blobstore.Store
	catalog catalog.Catalog
	opts    Options
}

// New creates a Store over blobs and cat.
func New(blobs blobstore.Store, cat catalog.Catalog, optFns ...func(o *Options)) *Store {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = DefaultOptions.Logger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{blobs: blobs, catalog: cat, opts: opts}
}

func (s *Store) objectName(name string) string {
	return s.opts.Prefix + name + "/" + uuid.NewString() + ".annk"
}

// Save serializes node and stores it under name. key is the algorithm in r
// the node was created from; Load uses it to construct the replacement node.
// A node whose type or element type differs from what key builds in r is
// rejected with ErrKeyMismatch.
func (s *Store) Save(ctx context.Context, r *annkit.Registry, node index.Node, key annkit.Key, name string) (catalog.Record, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: %w", name, err)
	}

	blob, err := node.Serialize()
	if err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: serialize: %w", name, err)
	}
	if blob.ElementType != key.ElementType {
		return catalog.Record{}, fmt.Errorf("%w: blob is %s, key is %s", ErrKeyMismatch, blob.ElementType, key)
	}
	want, err := canonicalType(r, key, blob.Version)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: %w", name, err)
	}
	if blob.Type != want {
		return catalog.Record{}, fmt.Errorf("%w: blob is %s, %s builds %s", ErrKeyMismatch, blob.Type, key, want)
	}
	raw, err := blob.MarshalBinary()
	if err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: %w", name, err)
	}
	frame, err := codec.Compress(s.opts.Compression, raw)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: compress: %w", name, err)
	}

	prev, err := s.catalog.Get(ctx, name)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return catalog.Record{}, fmt.Errorf("persist %q: %w", name, err)
	}

	if err := s.opts.Limiter.WaitN(ctx, len(frame)); err != nil {
		return catalog.Record{}, err
	}
	object := s.objectName(name)
	if err := s.blobs.Put(ctx, object, frame); err != nil {
		return catalog.Record{}, fmt.Errorf("persist %q: put: %w", name, err)
	}

	rec, err := s.catalog.Put(ctx, catalog.Record{
		Name:        name,
		Algorithm:   key.Name,
		ElementType: key.ElementType.String(),
		Version:     int32(blob.Version),
		Dim:         blob.Dim,
		Count:       blob.Count,
		Blob:        object,
		Compression: s.opts.Compression.String(),
		Revision:    prev.Revision,
		UpdatedAt:   s.opts.Now().UTC(),
	})
	if err != nil {
		s.remove(ctx, object)
		return catalog.Record{}, fmt.Errorf("persist %q: commit: %w", name, err)
	}

	if prev.Blob != "" {
		s.remove(ctx, prev.Blob)
	}
	s.opts.Logger.InfoContext(ctx, "index saved",
		"name", name,
		"algorithm", key.Name,
		"element_type", key.ElementType.String(),
		"bytes", len(frame),
		"revision", rec.Revision,
	)
	return rec, nil
}

// canonicalType reports the type of a node built for key by r.
func canonicalType(r *annkit.Registry, key annkit.Key, v index.Version) (string, error) {
	entry, err := r.Lookup(key.Name, key.ElementType)
	if err != nil {
		return "", err
	}
	node, err := entry.New(v)
	if err != nil {
		return "", err
	}
	defer node.Close()
	return node.Type(), nil
}

// remove deletes an object that is no longer referenced. Failures only leave garbage behind.
func (s *Store) remove(ctx context.Context, object string) {
	if err := s.blobs.Delete(ctx, object); err != nil {
		s.opts.Logger.WarnContext(ctx, "orphaned blob", "blob", object, "error", err)
	}
}

// Load reads the index saved under name and deserializes it into a node
// constructed from r. The caller owns the returned node.
func (s *Store) Load(ctx context.Context, r *annkit.Registry, name string) (index.Node, catalog.Record, error) {
	rec, err := s.catalog.Get(ctx, name)
	if err != nil {
		return nil, catalog.Record{}, fmt.Errorf("load %q: %w", name, err)
	}
	et, err := index.ParseElementType(rec.ElementType)
	if err != nil {
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}
	entry, err := r.Lookup(rec.Algorithm, et)
	if err != nil {
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}

	frame, err := s.blobs.Get(ctx, rec.Blob)
	if err != nil {
		return nil, rec, fmt.Errorf("load %q: get: %w", name, err)
	}
	if err := s.opts.Limiter.WaitN(ctx, len(frame)); err != nil {
		return nil, rec, err
	}
	raw, err := codec.Decompress(frame)
	if err != nil {
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}
	var blob index.Blob
	if err := blob.UnmarshalBinary(raw); err != nil {
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}

	node, err := entry.New(blob.Version)
	if err != nil {
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}
	if err := node.Deserialize(blob); err != nil {
		_ = node.Close()
		return nil, rec, fmt.Errorf("load %q: %w", name, err)
	}
	return node, rec, nil
}

// Delete removes the record for name and then its blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	rec, err := s.catalog.Get(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, name); err != nil {
		return err
	}
	s.remove(ctx, rec.Blob)
	return nil
}

// List returns all saved records.
func (s *Store) List(ctx context.Context) ([]catalog.Record, error) {
	return s.catalog.List(ctx)
}

// Package persist saves built indexes to a blobstore.Store and records them
// in a catalog.Catalog so they can be loaded back through a Registry.
//
// Save writes the serialized blob under a fresh object name and then
// commits the catalog record. The previous object is removed only after the
// commit succeeded, so a reader never sees a record that points to a
// missing blob.
package persist

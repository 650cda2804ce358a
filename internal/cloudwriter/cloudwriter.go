// Package cloudwriter uploads finished result artifacts (parquet run files)
// to object storage. Writers buffer locally and upload the whole object on
// Close, which suits the write-once, immutable run outputs.
package cloudwriter

// CloudWriter accumulates one object's bytes and uploads them on Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

// CloudWriterFactory mints writers bound to a bucket and object key.
type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}

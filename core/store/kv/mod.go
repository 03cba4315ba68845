// Package kv defines a key/value database made of buckets, and the storage of
// the ledger built over one bucket.
//
// The default database uses bbolt as the engine
// (https://github.com/etcd-io/bbolt), so that deployed contracts and their
// state survive between two runs of the tools.
//
// Documentation Last Review: 19.10.2026
//
package kv

// Bucket is a named set of keys in the database.
type Bucket interface {
	// Get returns the value of the key, or nil if the key does not exist. The
	// value is only valid during the transaction.
	Get(key []byte) []byte

	Set(key, value []byte) error

	Delete(key []byte) error

	// Scan calls the function for every key matching the prefix in byte order.
	// It stops at the first error of the function.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx is a read-only transaction.
type ReadableTx interface {
	// GetBucket returns the bucket of the name, or nil if it does not exist.
	GetBucket(name []byte) Bucket
}

// WritableTx is a read-write transaction.
type WritableTx interface {
	ReadableTx

	// GetBucketOrCreate returns the bucket of the name and creates it when it
	// does not exist yet.
	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is a key/value database. A transaction is either fully applied or not at
// all.
type DB interface {
	View(fn func(ReadableTx) error) error

	// Update runs the transaction and commits it if the function returns no
	// error.
	Update(fn func(WritableTx) error) error

	Close() error
}

package leveldb

import (
	"errors"

	"github.com/dagchain-lab/dagchain/helper/kvdb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type batch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *batch) Set(k, v []byte) error {
	b.batch.Put(k, v)

	return nil
}

func (b *batch) Delete(k []byte) error {
	b.batch.Delete(k)

	return nil
}

func (b *batch) Write() error {
	return b.db.Write(b.batch, nil)
}

// database is the leveldb implementation of the kv storage
type database struct {
	db *leveldb.DB
}

func (kv *database) NewBatch() kvdb.Batch {
	return &batch{db: kv.db, batch: &leveldb.Batch{}}
}

// bytesPrefixRange returns key range that satisfy
// - the given prefix, and
// - the given seek position
func bytesPrefixRange(prefix, start []byte) *util.Range {
	r := util.BytesPrefix(prefix)
	r.Start = append(r.Start, start...)

	return r
}

func (kv *database) NewIterator(prefix, start []byte) kvdb.Iterator {
	return kv.db.NewIterator(bytesPrefixRange(prefix, start), nil)
}

// Set sets the key-value pair in leveldb storage
func (kv *database) Set(p []byte, v []byte) error {
	return kv.db.Put(p, v, nil)
}

func (kv *database) Delete(p []byte) error {
	return kv.db.Delete(p, nil)
}

func (kv *database) Has(p []byte) (bool, error) {
	return kv.db.Has(p, nil)
}

// Get retrieves the key-value pair in leveldb storage
func (kv *database) Get(p []byte) ([]byte, bool, error) {
	data, err := kv.db.Get(p, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return data, true, nil
}

// Close closes the leveldb storage instance
func (kv *database) Close() error {
	return kv.db.Close()
}

// New opens a leveldb backed key-value storage at the given path
func New(path string, options ...Option) (kvdb.KVBatchStorage, error) {
	o := &dbOption{
		logger:  nil,
		options: defaultLevelDBOptions(),
	}

	if err := handleOptions(o, options); err != nil {
		return nil, err
	}

	db, err := leveldb.OpenFile(path, o.options)
	if err != nil {
		return nil, err
	}

	return &database{db: db}, nil
}

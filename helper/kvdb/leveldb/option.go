package leveldb

import (
	"fmt"

	"github.com/dagchain-lab/dagchain/helper/kvdb"
	"github.com/hashicorp/go-hclog"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// minCache is the default block cache size given to leveldb
	minCache = 16 // 16 MiB

	// minHandles is the minimum number of files handles to leveldb open files
	minHandles = 16

	DefaultCache        = 64   // 64 MiB
	DefaultHandles      = 128  // files handles to leveldb open files
	DefaultBloomKeyBits = 2048 // bloom filter bits (256 bytes)
)

const (
	bloomKeyBits = "bloomKeyBits"
	cacheSize    = "cacheSize"
	handles      = "handles"
	logger       = "logger"
	noSync       = "noSync"
	readOnly     = "readOnly"
)

type optionValue struct {
	Value interface{}
}

// Option is a leveldb option
type Option func(map[string]optionValue) error

func addArg(key string, value interface{}) Option {
	return func(params map[string]optionValue) error {
		if value == nil {
			return nil
		}

		params[key] = optionValue{value}

		return nil
	}
}

func addArgError(err error) Option {
	return func(map[string]optionValue) error {
		return err
	}
}

// SetBloomKeyBits sets bloom filter bits per key
func SetBloomKeyBits(v int) Option {
	if v <= 0 {
		return addArgError(fmt.Errorf("%s value must greater than 0", bloomKeyBits))
	}

	return addArg(bloomKeyBits, v)
}

// SetCacheSize sets the cache size in MiB
func SetCacheSize(v int) Option {
	if v <= 0 {
		return addArgError(fmt.Errorf("%s value must greater than 0 MiB", cacheSize))
	}

	return addArg(cacheSize, v)
}

// SetHandles sets the handles (file descriptor count)
func SetHandles(v int) Option {
	if v <= 0 {
		return addArgError(fmt.Errorf("%s value must greater than 0", handles))
	}

	return addArg(handles, v)
}

// SetLogger sets the outside logger to it
//
// The default one print out nothing
func SetLogger(v kvdb.Logger) Option {
	if v == nil {
		v = hclog.NewNullLogger()
	}

	return addArg(logger, v)
}

// SetNoSync allows completely disable fsync
func SetNoSync(v bool) Option {
	return addArg(noSync, v)
}

func SetReadonly(v bool) Option {
	return addArg(readOnly, v)
}

func defaultLevelDBOptions() *opt.Options {
	return &opt.Options{
		OpenFilesCacheCapacity: minHandles,
		BlockCacheCapacity:     minCache * opt.MiB,
		Filter:                 filter.NewBloomFilter(DefaultBloomKeyBits),
		NoSync:                 false,
		DisableSeeksCompaction: true,
	}
}

type dbOption struct {
	logger  kvdb.Logger
	options *opt.Options
}

func handleOptions(o *dbOption, options []Option) error {
	params := map[string]optionValue{}

	for _, option := range options {
		if option != nil {
			if err := option(params); err != nil {
				return err
			}
		}
	}

	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}

	if v, ok := params[logger]; ok {
		//nolint:forcetypeassert
		o.logger = v.Value.(kvdb.Logger)
	}

	for k, v := range params {
		//nolint:forcetypeassert
		switch k {
		case bloomKeyBits:
			o.options.Filter = filter.NewBloomFilter(v.Value.(int))
		case cacheSize:
			o.options.BlockCacheCapacity = v.Value.(int) * opt.MiB
		case handles:
			o.options.OpenFilesCacheCapacity = max(v.Value.(int), minHandles)
		case noSync:
			o.options.NoSync = v.Value.(bool)
		case readOnly:
			o.options.ReadOnly = v.Value.(bool)
		case logger:
			continue
		default:
			continue
		}

		o.logger.Info("set leveldb option", "key", k, "value", v.Value)
	}

	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}

	return b
}

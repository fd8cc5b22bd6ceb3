// Package cache implements the two-tier cache (component C4): an in-memory
// LRU (memory.go) in front of a bounded, durable on-disk row store
// (this file), both keyed by canonicalized root path.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/blksword/flashdir/pkg/fs"
)

// Disk default bounds (spec §4.4): 500 MiB total, 7-day TTL on created_at.
const (
	DefaultDiskMaxSizeBytes = 500 << 20
	DefaultDiskTTL          = 7 * 24 * time.Hour
)

// row is the on-disk record: "(path PRIMARY KEY, data BLOB, dir_mtime INT,
// created_at INT, size INT, item_count INT)" from spec §4.4, packed as a
// fixed binary layout (length-prefixed strings/blobs, big-endian ints) for
// the Badger value; Data itself holds the gob+xxhash envelope from
// codec.go. The key itself carries Path, so Invalidate's prefix scan works
// on keys alone; eviction by age, TTL pruning and Stats decode each value
// for its Size and CreatedAt.
type row struct {
	Path      string
	Data      []byte
	DirMtime  int64
	CreatedAt int64
	Size      int64
	ItemCount int
}

// Disk is the persistent, size- and TTL-bounded on-disk tier, backed by a
// single embedded BadgerDB database. Adapted from gdu's IncrementalStorage
// (pkg/analyze/incremental_storage.go): same open-with-diagnostics,
// one-value-per-row, RunValueLogGC(0.5) housekeeping, generalized from
// per-directory rows keyed "incr:<path>" to whole-scan rows keyed
// "scan:<canonical-root>", with the size/TTL bounding and prefix-invalidate
// semantics spec §4.4 adds on top.
type Disk struct {
	db          *badger.DB
	path        string
	maxBytes    int64
	ttl         time.Duration
	mu          sync.Mutex
	opCount     int
}

const keyPrefix = "scan:"

// NewDisk constructs the disk tier without opening it. maxBytes <= 0 or
// ttl <= 0 fall back to the spec defaults.
func NewDisk(storagePath string, maxBytes int64, ttl time.Duration) *Disk {
	if maxBytes <= 0 {
		maxBytes = DefaultDiskMaxSizeBytes
	}
	if ttl <= 0 {
		ttl = DefaultDiskTTL
	}
	return &Disk{path: storagePath, maxBytes: maxBytes, ttl: ttl}
}

// Open opens the underlying BadgerDB database, creating storagePath if
// needed, and prunes rows older than the configured TTL (spec §4.4: "on
// startup, delete rows with created_at < now - 7 days"). The returned
// closer must be called to release the database.
func (d *Disk) Open() (func(), error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %s", d.path)
	}

	opts := badger.DefaultOptions(d.path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, diskOpenError(d.path, err)
	}
	d.db = db

	if err := d.pruneExpired(); err != nil {
		log.WithError(err).Warn("disk cache: TTL prune on startup failed")
	}

	return func() {
		d.db.Close()
		d.db = nil
	}, nil
}

func diskOpenError(path string, err error) error {
	msg := err.Error()
	switch {
	case os.IsPermission(err):
		return fmt.Errorf("permission denied opening disk cache at %s: %w", path, err)
	case strings.Contains(msg, "no space left"), strings.Contains(msg, "disk full"):
		return fmt.Errorf("insufficient disk space for cache at %s: %w", path, err)
	case strings.Contains(msg, "corrupted"), strings.Contains(msg, "checksum"), strings.Contains(msg, "manifest"):
		return fmt.Errorf("disk cache corrupted at %s (try deleting it with: rm -rf %s): %w", path, path, err)
	case strings.Contains(msg, "Another process is using this Badger database"),
		strings.Contains(msg, "Cannot acquire directory lock"):
		return fmt.Errorf("disk cache at %s is locked by another flashdir process: %w", path, err)
	default:
		return fmt.Errorf("failed to open disk cache at %s: %w", path, err)
	}
}

func badgerKey(canonicalRoot string) []byte {
	return []byte(keyPrefix + canonicalRoot)
}

// Get looks up key and returns its cached ScanResult if the row's dir_mtime
// is at least probedMtime (spec §4.4: cached.dir_mtime >= probed.dir_mtime).
// On a hit, created_at is bumped to now as an LRU proxy for eviction
// ordering. A corrupt row is treated as a miss, never as an error.
func (d *Disk) Get(key string, probedMtime int64) (*fs.ScanResult, bool) {
	d.bumpOpCount()

	var r row
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeRow(val, &r)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			log.WithError(err).WithField("key", key).Debug("disk cache: read failed, treating as miss")
		}
		return nil, false
	}

	if r.DirMtime < probedMtime {
		return nil, false
	}

	result, decodeErr := Decode(r.Data)
	if decodeErr != nil {
		log.WithError(decodeErr).WithField("key", key).Warn("disk cache: corrupt payload, treating as miss")
		return nil, false
	}

	r.CreatedAt = nowUnix()
	if encErr := d.putRow(r); encErr != nil {
		log.WithError(encErr).WithField("key", key).Debug("disk cache: recency bump failed")
	}

	return result, true
}

// Insert upserts key with result, evicting the oldest rows first if the
// tier's total size would exceed its bound (spec §4.4 eviction formula).
// Any failure here is logged and swallowed — the disk tier is advisory
// (§7: cache-tier errors are never surfaced to the caller).
func (d *Disk) Insert(key string, result *fs.ScanResult, dirMtime int64) {
	d.bumpOpCount()

	data, err := Encode(result)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("disk cache: encode failed, skipping insert")
		return
	}

	r := row{
		Path:      key,
		Data:      data,
		DirMtime:  dirMtime,
		CreatedAt: nowUnix(),
		Size:      int64(len(data)),
		ItemCount: len(result.Items),
	}

	total, err := d.totalSize()
	if err != nil {
		log.WithError(err).Warn("disk cache: size scan failed, skipping eviction check")
	} else if total+r.Size > d.maxBytes {
		if evErr := d.evictOldest(total + r.Size - d.maxBytes + d.maxBytes/4); evErr != nil {
			log.WithError(evErr).Warn("disk cache: eviction failed")
		}
	}

	if err := d.putRow(r); err != nil {
		log.WithError(err).WithField("key", key).Warn("disk cache: insert failed")
	}
}

func (d *Disk) putRow(r row) error {
	return d.db.Update(func(txn *badger.Txn) error {
		var buf bytes.Buffer
		if err := encodeRow(&buf, r); err != nil {
			return errors.Wrap(err, "encoding disk cache row")
		}
		return txn.Set(badgerKey(r.Path), buf.Bytes())
	})
}

// Invalidate deletes key and every row whose key has key as a string
// prefix (spec §4.4: "deletes the key and every row whose key has key as a
// string prefix"), covering the scan-plus-descendants semantics force
// refresh needs.
func (d *Disk) Invalidate(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := badgerKey(key)
		var toDelete [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			toDelete = append(toDelete, k)
		}
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes every row in the tier.
func (d *Disk) Clear() error {
	return d.db.DropAll()
}

// Stats mirrors get_disk_cache_stats (spec §6): entry count, total size,
// and the oldest surviving entry's created_at, if any. Re-derived from the
// row store on every call rather than tracked in a parallel counter (the
// Open Question in spec §9: avoid drift between a cached counter and the
// store's actual contents).
type Stats struct {
	EntryCount   int
	TotalBytes   int64
	OldestUnix   int64
	HasOldest    bool
}

func (d *Disk) Stats() (Stats, error) {
	var s Stats
	s.OldestUnix = math.MaxInt64
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r row
			derr := it.Item().Value(func(val []byte) error { return decodeRow(val, &r) })
			if derr != nil {
				continue
			}
			s.EntryCount++
			s.TotalBytes += r.Size
			if r.CreatedAt < s.OldestUnix {
				s.OldestUnix = r.CreatedAt
				s.HasOldest = true
			}
		}
		return nil
	})
	if !s.HasOldest {
		s.OldestUnix = 0
	}
	return s, err
}

func (d *Disk) totalSize() (int64, error) {
	s, err := d.Stats()
	return s.TotalBytes, err
}

// evictOldest deletes rows by ascending created_at until at least
// needBytes has been freed (spec §4.4's "delete the oldest ... rows by
// ascending created_at").
func (d *Disk) evictOldest(needBytes int64) error {
	type candidate = struct {
		key       []byte
		size      int64
		createdAt int64
	}
	var candidates []candidate

	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r row
			k := it.Item().KeyCopy(nil)
			derr := it.Item().Value(func(val []byte) error { return decodeRow(val, &r) })
			if derr != nil {
				continue
			}
			candidates = append(candidates, candidate{key: k, size: r.Size, createdAt: r.CreatedAt})
		}
		return nil
	})
	if err != nil {
		return err
	}

	sortByCreatedAt(candidates)

	return d.db.Update(func(txn *badger.Txn) error {
		var freed int64
		for _, c := range candidates {
			if freed >= needBytes {
				break
			}
			if err := txn.Delete(c.key); err != nil {
				return err
			}
			freed += c.size
		}
		return nil
	})
}

func sortByCreatedAt(c []struct {
	key       []byte
	size      int64
	createdAt int64
}) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].createdAt < c[j-1].createdAt; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func (d *Disk) pruneExpired() error {
	cutoff := nowUnix() - int64(d.ttl.Seconds())
	return d.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		var toDelete [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r row
			derr := it.Item().Value(func(val []byte) error { return decodeRow(val, &r) })
			if derr != nil {
				continue
			}
			if r.CreatedAt < cutoff {
				toDelete = append(toDelete, it.Item().KeyCopy(nil))
			}
		}
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// bumpOpCount mirrors gdu's checkCount: every 1000 operations, kick off a
// background value-log GC so the Badger value log doesn't grow unbounded
// under high churn.
func (d *Disk) bumpOpCount() {
	d.mu.Lock()
	d.opCount++
	fire := d.opCount%1000 == 0
	d.mu.Unlock()

	if fire {
		go func() {
			if d.db != nil {
				d.db.RunValueLogGC(0.5) //nolint:errcheck
			}
		}()
	}
}

func encodeRow(buf *bytes.Buffer, r row) error {
	writeString(buf, r.Path)
	writeBytes(buf, r.Data)
	writeInt64(buf, r.DirMtime)
	writeInt64(buf, r.CreatedAt)
	writeInt64(buf, r.Size)
	writeInt64(buf, int64(r.ItemCount))
	return nil
}

func decodeRow(val []byte, r *row) error {
	buf := bytes.NewReader(val)
	var err error
	if r.Path, err = readString(buf); err != nil {
		return err
	}
	if r.Data, err = readBytes(buf); err != nil {
		return err
	}
	if r.DirMtime, err = readInt64(buf); err != nil {
		return err
	}
	if r.CreatedAt, err = readInt64(buf); err != nil {
		return err
	}
	if r.Size, err = readInt64(buf); err != nil {
		return err
	}
	ic, err := readInt64(buf)
	if err != nil {
		return err
	}
	r.ItemCount = int(ic)
	return nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var tmp [8]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeInt64(buf, int64(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}

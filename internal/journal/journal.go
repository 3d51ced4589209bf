// Package journal keeps a durable history of cryption runs in BadgerDB.
//
// Keys are never stored, only a short fingerprint, so the journal can warn
// about a (key, nonce) pair being reused on a different file.
package journal

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/i5heu/ouroboros-crypt/hash"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// RunPrefix prefixes every run record key.
	RunPrefix = "run:"

	fingerprintBytes = 16
)

type Entry struct {
	ID             string
	Path           string
	KeyFingerprint string
	Nonce          string // hex
	Size           int64
	Processed      int64
	Workers        int
	Duration       time.Duration
	Started        time.Time
	Success        bool
}

type Journal struct {
	db  *badger.DB
	log *logrus.Logger
	seq uint64
}

// Fingerprint identifies key without revealing it.
func Fingerprint(key []byte) string {
	h := hash.HashBytes(key)
	return hex.EncodeToString(h[:fingerprintBytes])
}

func Open(path string, logger *logrus.Logger) (*Journal, error) {
	if logger == nil {
		logger = logrus.New()
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 16
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", path, err)
	}
	return &Journal{db: db, log: logger}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e and returns it with its ID set.
func (j *Journal) Record(e Entry) (Entry, error) {
	if e.Started.IsZero() {
		e.Started = time.Now()
	}
	seq := atomic.AddUint64(&j.seq, 1)
	e.ID = fmt.Sprintf("%s%020d:%06d", RunPrefix, e.Started.UnixNano(), seq%1_000_000)

	data, err := encodeEntry(e)
	if err != nil {
		return Entry{}, err
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(e.ID), data)
	})
	if err != nil {
		j.log.WithError(err).WithField("path", e.Path).Error("Failed to record run")
		return Entry{}, fmt.Errorf("failed to store run record: %w", err)
	}
	j.log.WithFields(logrus.Fields{"id": e.ID, "path": e.Path, "success": e.Success}).Debug("Recorded run")
	return e, nil
}

// List returns every recorded run, oldest first.
func (j *Journal) List() ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(RunPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var raw []byte
			if err := item.Value(func(val []byte) error {
				raw = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return fmt.Errorf("failed to read run record: %w", err)
			}
			e, err := decodeEntry(raw)
			if err != nil {
				return fmt.Errorf("failed to decode run record %s: %w", item.Key(), err)
			}
			e.ID = string(item.KeyCopy(nil))
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// NonceUses counts the distinct files a (key fingerprint, nonce) pair was
// used on.
func (j *Journal) NonceUses(fingerprint, nonce string) (int, error) {
	paths, err := j.FilesFor(fingerprint, nonce)
	return len(paths), err
}

// FilesFor lists the distinct paths crypted with a (key fingerprint, nonce)
// pair, in order of first use.
func (j *Journal) FilesFor(fingerprint, nonce string) ([]string, error) {
	entries, err := j.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var paths []string
	for _, e := range entries {
		if e.KeyFingerprint != fingerprint || e.Nonce != nonce {
			continue
		}
		if _, ok := seen[e.Path]; ok {
			continue
		}
		seen[e.Path] = struct{}{}
		paths = append(paths, e.Path)
	}
	return paths, nil
}

func encodeEntry(e Entry) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"path":        e.Path,
		"fingerprint": e.KeyFingerprint,
		"nonce":       e.Nonce,
		"size":        e.Size,
		"processed":   e.Processed,
		"workers":     e.Workers,
		"duration_ns": e.Duration.Nanoseconds(),
		"started":     e.Started.UTC().Format(time.RFC3339Nano),
		"success":     e.Success,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build run record: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run record: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	f := s.GetFields()
	started, err := time.Parse(time.RFC3339Nano, f["started"].GetStringValue())
	if err != nil {
		return Entry{}, fmt.Errorf("invalid start time: %w", err)
	}
	return Entry{
		Path:           f["path"].GetStringValue(),
		KeyFingerprint: f["fingerprint"].GetStringValue(),
		Nonce:          f["nonce"].GetStringValue(),
		Size:           int64(f["size"].GetNumberValue()),
		Processed:      int64(f["processed"].GetNumberValue()),
		Workers:        int(f["workers"].GetNumberValue()),
		Duration:       time.Duration(f["duration_ns"].GetNumberValue()),
		Started:        started,
		Success:        f["success"].GetBoolValue(),
	}, nil
}

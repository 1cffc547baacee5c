// Package journal keeps a checkpoint record per batch in an embedded
// BadgerDB store. A batch is marked started before its measurements are
// computed and flushed once its rows are in the result table, so a batch
// left in the started state lost its rows to a crash.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "batch/"

type State string

const (
	StateStarted State = "started"
	StateFlushed State = "flushed"
)

// Entry is the latest checkpoint of one batch.
type Entry struct {
	Batch  string    `json:"batch"`
	Number int       `json:"number"`
	State  State     `json:"state"`
	RunID  string    `json:"run_id"`
	Rows   int       `json:"rows"`
	At     time.Time `json:"at"`
}

type Config struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// Logger receives BadgerDB's own log output. Nil silences it.
	Logger *slog.Logger
}

// Journal is safe for concurrent use.
type Journal struct {
	db  *badger.DB
	now func() time.Time
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func Open(cfg Config) (*Journal, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("journal directory is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Started records that the batch is about to be measured.
func (j *Journal) Started(runID, batch string, number int) error {
	return j.put(Entry{Batch: batch, Number: number, State: StateStarted, RunID: runID})
}

// Flushed records that rows of the batch reached the result table.
func (j *Journal) Flushed(runID, batch string, number, rows int) error {
	return j.put(Entry{Batch: batch, Number: number, State: StateFlushed, RunID: runID, Rows: rows})
}

func (j *Journal) put(e Entry) error {
	e.At = j.now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+e.Batch), data)
	})
	if err != nil {
		return fmt.Errorf("write journal entry for %s: %w", e.Batch, err)
	}
	return nil
}

// Get returns the latest entry for a batch.
func (j *Journal) Get(batch string) (Entry, bool, error) {
	var e Entry
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + batch))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read journal entry for %s: %w", batch, err)
	}
	return e, true, nil
}

// Entries returns every batch entry ordered by batch number.
func (j *Journal) Entries() ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Number != entries[b].Number {
			return entries[a].Number < entries[b].Number
		}
		return entries[a].Batch < entries[b].Batch
	})
	return entries, nil
}

// Incomplete returns the batches whose rows never reached the result table.
func (j *Journal) Incomplete() ([]Entry, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		if e.State == StateStarted {
			out = append(out, e)
		}
	}
	return out, nil
}

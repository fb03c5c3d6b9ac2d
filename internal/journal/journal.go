// Package journal keeps a local bbolt log of executed crontab jobs.
// The log is an audit trail only: the matcher never reads it, so deleting
// the database never changes which entries are due.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const runsBucket = "runs"

// Record describes one job run.
type Record struct {
	ID           uint64    `json:"id"`
	Line         int       `json:"line,omitempty"`
	Schedule     string    `json:"schedule"`
	Command      string    `json:"command"`
	ScheduledFor time.Time `json:"scheduled_for"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	ExitCode     int       `json:"exit_code"`
	TimedOut     bool      `json:"timed_out,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Failed reports whether the run ended badly.
func (r *Record) Failed() bool {
	return r.Error != "" || r.TimedOut || r.ExitCode != 0
}

// Journal is an append-only run log with bounded retention.
type Journal struct {
	db   *bolt.DB
	keep int
}

// Open opens or creates the journal at path. keep bounds how many records
// Append retains; zero or less disables pruning.
func Open(path string, keep int) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise journal: %w", err)
	}

	return &Journal{db: db, keep: keep}, nil
}

// Append stores r, assigning its ID, and drops the oldest records beyond
// the retention limit in the same transaction.
func (j *Journal) Append(r *Record) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		r.ID = id

		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := b.Put(itob(id), data); err != nil {
			return err
		}

		if j.keep > 0 {
			return prune(b, j.keep)
		}
		return nil
	})
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(limit int) ([]*Record, error) {
	var records []*Record

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			records = append(records, &r)
		}
		return nil
	})

	return records, err
}

// Prune keeps only the newest keep records.
func (j *Journal) Prune(keep int) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		return prune(tx.Bucket([]byte(runsBucket)), keep)
	})
}

// Count returns the number of stored records.
func (j *Journal) Count() (int, error) {
	var count int
	err := j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(runsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func prune(b *bolt.Bucket, keep int) error {
	// Stats only reflects committed pages, so count through a cursor.
	total := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		total++
	}
	excess := total - keep
	if excess <= 0 {
		return nil
	}

	// Collect first: deleting while iterating skips keys.
	stale := make([][]byte, 0, excess)
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// itob encodes v big-endian so keys sort in insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

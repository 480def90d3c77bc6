package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketVisits = []byte("visits")

// VisitRecord is one journal entry: the final outcome of every attempt
// sequence against a URL in a session. The journal is diagnostic only; the
// JSON checkpoint remains the downstream contract.
type VisitRecord struct {
	URL      string    `json:"url"`
	Outcome  string    `json:"outcome"` // "visited" or "failed"
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// Journal records visit outcomes in a BoltDB file next to the checkpoint.
type Journal struct {
	db *bolt.DB
}

// OpenJournal opens (or creates) the journal database.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVisits)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends one visit outcome, keyed by URL. A URL re-visited in a later
// session overwrites its previous entry.
func (j *Journal) Record(rec VisitRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal visit record: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisits).Put([]byte(rec.URL), data)
	})
}

// All returns every journal entry.
func (j *Journal) All() ([]VisitRecord, error) {
	var records []VisitRecord

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisits).ForEach(func(_, v []byte) error {
			var rec VisitRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Counts tallies entries per outcome.
func (j *Journal) Counts() (visited, failed int, err error) {
	records, err := j.All()
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range records {
		switch rec.Outcome {
		case "visited":
			visited++
		case "failed":
			failed++
		}
	}
	return visited, failed, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

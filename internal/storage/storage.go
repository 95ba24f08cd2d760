// Package storage provides persistent data storage for the classifier service.
// It uses BoltDB as the underlying storage engine to keep the training-run
// history and a log of served predictions across restarts.
//
// Fitted models are deliberately not stored here: a model lives only as long
// as the process that trained it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"koi-classifier/internal/common"
	"koi-classifier/internal/ml"
)

const (
	runsBucket        = "training_runs" // Bucket name for training-run records
	predictionsBucket = "predictions"   // Bucket name for prediction records
)

// Store provides persistent storage using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance under dataPath, creating the directory
// if needed. Returns an error if the database cannot be opened or buckets
// cannot be created.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, common.DefaultDataFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create training runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores a training run. Keys sort by training time, so ListRuns
// returns runs oldest first.
func (s *Store) SaveRun(run ml.TrainingRun) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal training run: %w", err)
		}

		return b.Put(runKey(run), data)
	})
}

// ListRuns returns every stored training run, oldest first. Records that fail
// to decode are skipped.
func (s *Store) ListRuns() ([]ml.TrainingRun, error) {
	var runs []ml.TrainingRun

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		return b.ForEach(func(_, v []byte) error {
			var run ml.TrainingRun
			if err := json.Unmarshal(v, &run); err != nil {
				return nil // Skip malformed records
			}
			runs = append(runs, run)
			return nil
		})
	})

	return runs, err
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed.
func (s *Store) PruneRuns(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for len(keys)-removed > keep {
			if err := b.Delete(keys[removed]); err != nil {
				return fmt.Errorf("delete training run: %w", err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func runKey(run ml.TrainingRun) []byte {
	return []byte(fmt.Sprintf("%020d_%s", run.TrainedAt.UnixNano(), run.ID))
}

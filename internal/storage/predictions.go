package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"` // single, batch or csv
	Name       string    `json:"name,omitempty"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	ModelUsed  string    `json:"model_used"`
	ModelID    string    `json:"model_id,omitempty"`
}

// LogPredictions stores records in a single transaction. Keys are the
// timestamp followed by a bucket sequence, so records from the same instant
// keep their order.
func (s *Store) LogPredictions(records []PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		for _, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("marshal prediction record: %w", err)
			}

			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next prediction sequence: %w", err)
			}

			if err := b.Put(predictionKey(record.Timestamp, seq), data); err != nil {
				return fmt.Errorf("put prediction record: %w", err)
			}
		}
		return nil
	})
}

// GetPredictionsInRange returns predictions with start <= timestamp <= end,
// oldest first, up to limit records (0 means no limit).
func (s *Store) GetPredictionsInRange(start, end time.Time, limit int) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		c := b.Cursor()

		startKey := predictionKey(start, 0)
		endKey := predictionKey(end, ^uint64(0))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var record PredictionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})

	return records, err
}

func predictionKey(ts time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d_%020d", ts.UnixNano(), seq))
}

package etl

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nextier/graph-etl/pkg/store"
)

// ErrBucketNotFound is returned when neither a JSON index nor a CSV export
// exists for a bucket ID.
var ErrBucketNotFound = errors.New("bucket not found")

// Bucket is one named collection of raw imported records.
type Bucket struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Source  string   `json:"source"`
	Records []Record `json:"properties"`
}

// BucketSource fetches raw record batches for the orchestrator.
type BucketSource interface {
	FetchBucket(ctx context.Context, bucketID string) (*Bucket, error)
	ListBucketIDs(ctx context.Context) ([]string, error)
}

// StoreBucketSource reads buckets out of the object store. A bucket lives
// under buckets/{id}/ as either an index.json produced by the importer or a
// raw records.csv upload.
type StoreBucketSource struct {
	store store.ObjectStore
}

func NewStoreBucketSource(s store.ObjectStore) *StoreBucketSource {
	return &StoreBucketSource{store: s}
}

func (s *StoreBucketSource) FetchBucket(ctx context.Context, bucketID string) (*Bucket, error) {
	data, _, err := s.store.Get(ctx, "buckets/"+bucketID+"/index.json")
	if err == nil {
		bucket := &Bucket{}
		if err := json.Unmarshal(data, bucket); err != nil {
			return nil, fmt.Errorf("bucket %s has malformed index: %w", bucketID, err)
		}
		if bucket.ID == "" {
			bucket.ID = bucketID
		}
		return bucket, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch bucket %s: %w", bucketID, err)
	}

	data, _, err = s.store.Get(ctx, "buckets/"+bucketID+"/records.csv")
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("bucket %s: %w", bucketID, ErrBucketNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bucket %s: %w", bucketID, err)
	}

	records, err := parseCSVRecords(data)
	if err != nil {
		return nil, fmt.Errorf("bucket %s has malformed csv: %w", bucketID, err)
	}
	return &Bucket{ID: bucketID, Name: bucketID, Source: "csv", Records: records}, nil
}

// parseCSVRecords maps each CSV row to a Record keyed by the header row, so
// the extractor's candidate field tables apply to CSV uploads unchanged.
func parseCSVRecords(data []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := Record{}
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				record[strings.TrimSpace(header[i])] = cell
			}
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *StoreBucketSource) ListBucketIDs(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx, "buckets/")
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	seen := map[string]bool{}
	var ids []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, "buckets/")
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

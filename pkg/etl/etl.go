package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/graph"
	"github.com/nextier/graph-etl/pkg/store"
)

// Run modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// ETLJobMsg is the queue payload for one asynchronous ETL run.
type ETLJobMsg struct {
	JobID         string `json:"job_id"`
	BucketID      string `json:"bucket_id"`
	Mode          string `json:"mode"`
	CorrelationID string `json:"correlation_id"`
}

// JobStatus is the externally visible state of one ETL job.
type JobStatus struct {
	ID          string          `json:"id"`
	BucketID    string          `json:"bucket_id"`
	Mode        string          `json:"mode"`
	Status      string          `json:"status"`
	Progress    common.Progress `json:"progress"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// JobSink records job state transitions for the triggering API. The
// orchestrator only writes through this interface; it never defines the HTTP
// surface that reads it back.
type JobSink interface {
	Create(ctx context.Context, bucketID, mode string) (string, error)
	MarkProcessing(ctx context.Context, jobID string) error
	UpdateProgress(ctx context.Context, jobID string, progress common.Progress) error
	Complete(ctx context.Context, jobID string, result *common.ETLResult) error
	Fail(ctx context.Context, jobID string, reason string) error
	Get(ctx context.Context, jobID string) (*JobStatus, error)
}

// Publisher hands an ETL job to an external worker.
type Publisher interface {
	PublishETLJob(ctx context.Context, msg ETLJobMsg) error
}

// Client drives ETL runs over buckets: it maps raw records through the
// extractors into graph writes, tracks progress, and maintains per-bucket
// watermarks for incremental runs.
type Client struct {
	graph       *graph.GraphClient
	source      BucketSource
	store       store.ObjectStore
	jobs        JobSink
	queue       Publisher
	parallelism int
	maxRetries  int
}

type NewClientParams struct {
	Graph  *graph.GraphClient
	Source BucketSource
	// Store holds the per-bucket watermarks. Usually the same object store
	// that backs the graph.
	Store store.ObjectStore
	// Jobs is optional; without it runs are not externally tracked.
	Jobs JobSink
	// Queue is optional; without it QueueBucketForETL runs synchronously.
	Queue Publisher
	// Parallelism bounds in-flight record writes. Defaults to 8.
	Parallelism int
	// MaxRetries bounds per-record attempts on transient errors. Defaults to 3.
	MaxRetries int
}

func NewClient(params NewClientParams) (*Client, error) {
	if params.Graph == nil {
		return nil, errors.New("etl client requires a graph client")
	}
	if params.Source == nil {
		return nil, errors.New("etl client requires a bucket source")
	}
	if params.Store == nil {
		return nil, errors.New("etl client requires an object store")
	}
	if params.Parallelism <= 0 {
		params.Parallelism = 8
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = 3
	}
	return &Client{
		graph:       params.Graph,
		source:      params.Source,
		store:       params.Store,
		jobs:        params.Jobs,
		queue:       params.Queue,
		parallelism: params.Parallelism,
		maxRetries:  params.MaxRetries,
	}, nil
}

// Watermark is the per-bucket high-water mark for incremental runs: the
// number of leading records already covered by a successful run. It only
// advances after a run completes, so an aborted run reprocesses its tail.
type Watermark struct {
	BucketID  string    `json:"bucket_id"`
	LastIndex int       `json:"last_index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Client) loadWatermark(ctx context.Context, bucketID string) (Watermark, error) {
	data, _, err := c.store.Get(ctx, graph.WatermarkPath(bucketID))
	if errors.Is(err, store.ErrNotFound) {
		return Watermark{BucketID: bucketID}, nil
	}
	if err != nil {
		return Watermark{}, fmt.Errorf("failed to load watermark for bucket %s: %w", bucketID, err)
	}

	wm := Watermark{}
	if err := json.Unmarshal(data, &wm); err != nil {
		return Watermark{}, fmt.Errorf("malformed watermark for bucket %s: %w", bucketID, err)
	}
	return wm, nil
}

func (c *Client) saveWatermark(ctx context.Context, bucketID string, lastIndex int) error {
	data, err := json.Marshal(Watermark{
		BucketID:  bucketID,
		LastIndex: lastIndex,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, graph.WatermarkPath(bucketID), data); err != nil {
		return fmt.Errorf("failed to save watermark for bucket %s: %w", bucketID, err)
	}
	return nil
}

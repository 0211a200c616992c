package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/graph"
	"github.com/nextier/graph-etl/pkg/store/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func (f *fakeSource) FetchBucket(ctx context.Context, bucketID string) (*Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[bucketID]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", bucketID, ErrBucketNotFound)
	}
	copied := *bucket
	return &copied, nil
}

func (f *fakeSource) ListBucketIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeSource) appendRecords(bucketID string, records ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucketID].Records = append(f.buckets[bucketID].Records, records...)
}

type fakeJobs struct {
	mu   sync.Mutex
	seq  int
	jobs map[string]*JobStatus
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*JobStatus{}}
}

func (f *fakeJobs) Create(ctx context.Context, bucketID, mode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("job-%d", f.seq)
	f.jobs[id] = &JobStatus{
		ID: id, BucketID: bucketID, Mode: mode,
		Status: common.JobPending, CreatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeJobs) MarkProcessing(ctx context.Context, jobID string) error {
	return f.update(jobID, func(j *JobStatus) {
		now := time.Now()
		j.Status = common.JobProcessing
		j.StartedAt = &now
	})
}

func (f *fakeJobs) UpdateProgress(ctx context.Context, jobID string, progress common.Progress) error {
	return f.update(jobID, func(j *JobStatus) { j.Progress = progress })
}

func (f *fakeJobs) Complete(ctx context.Context, jobID string, result *common.ETLResult) error {
	return f.update(jobID, func(j *JobStatus) {
		now := time.Now()
		j.Status = common.JobCompleted
		j.Progress = result.Progress
		j.CompletedAt = &now
	})
}

func (f *fakeJobs) Fail(ctx context.Context, jobID string, reason string) error {
	return f.update(jobID, func(j *JobStatus) {
		now := time.Now()
		j.Status = common.JobFailed
		j.Error = reason
		j.CompletedAt = &now
	})
}

func (f *fakeJobs) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) update(jobID string, fn func(*JobStatus)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	fn(job)
	return nil
}

func newTestETL(t *testing.T, params NewClientParams) (*Client, *graph.GraphClient, *memory.MemoryStore) {
	t.Helper()
	ms := memory.NewMemoryStore()
	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{Store: ms})
	if err != nil {
		t.Fatalf("failed to create graph client: %v", err)
	}
	params.Graph = gc
	params.Store = ms
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}
	if params.MaxRetries == 0 {
		params.MaxRetries = 1
	}
	client, err := NewClient(params)
	if err != nil {
		t.Fatalf("failed to create etl client: %v", err)
	}
	return client, gc, ms
}

func johnSmithRecord() Record {
	return Record{
		"fullName": "John Smith",
		"phone":    "(555) 123-4567",
		"company":  "Acme Plumbing LLC",
		"address":  "123 Main Street Apt 4",
		"city":     "Springfield",
		"state":    "IL",
	}
}

func TestProcessBucketResolvesRecord(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Name: "Leads", Records: []Record{johnSmithRecord()}},
	}}
	client, gc, _ := newTestETL(t, NewClientParams{Source: source})
	ctx := context.Background()

	result, err := client.ProcessBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("ProcessBucket failed: %v", err)
	}
	if result.Progress.Processed != 1 || result.Progress.Failed != 0 {
		t.Fatalf("unexpected progress: %+v", result.Progress)
	}

	contact, err := gc.GetNodeByKey(ctx, common.NodeContact, "JOHN SMITH|5551234567")
	if err != nil {
		t.Fatalf("contact node missing: %v", err)
	}
	if contact.Attributes["fullName"] != "JOHN SMITH" {
		t.Errorf("contact fullName = %q", contact.Attributes["fullName"])
	}
	phone, err := gc.GetNodeByKey(ctx, common.NodePhone, "5551234567")
	if err != nil {
		t.Fatalf("phone node missing: %v", err)
	}
	business, err := gc.GetNodeByKey(ctx, common.NodeBusiness, "ACME PLUMBING")
	if err != nil {
		t.Fatalf("business node missing: %v", err)
	}
	address, err := gc.GetNodeByKey(ctx, common.NodeAddress, "123 MAIN ST, SPRINGFIELD, IL")
	if err != nil {
		t.Fatalf("address node missing: %v", err)
	}
	if address.Attributes["street"] != "123 MAIN ST" {
		t.Errorf("address street = %q", address.Attributes["street"])
	}

	for _, edge := range []struct {
		edgeType common.EdgeType
		from, to string
	}{
		{common.EdgeHasPhone, contact.ID, phone.ID},
		{common.EdgeWorksAt, contact.ID, business.ID},
		{common.EdgeLocatedAt, business.ID, address.ID},
		{common.EdgeLocatedAt, contact.ID, address.ID},
	} {
		exists, err := gc.EdgeExists(ctx, edge.edgeType, edge.from, edge.to)
		if err != nil {
			t.Fatalf("EdgeExists(%s) failed: %v", edge.edgeType, err)
		}
		if !exists {
			t.Errorf("expected %s edge from %s to %s", edge.edgeType, edge.from, edge.to)
		}
	}
}

func TestProcessBucketRerunIsIdempotent(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Name: "Leads", Records: []Record{
			johnSmithRecord(),
			{"companyName": "ACME PLUMBING LLC", "phone": "555-987-6543"},
		}},
	}}
	client, _, ms := newTestETL(t, NewClientParams{Source: source})
	ctx := context.Background()

	first, err := client.ProcessBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Progress.NodesCreated == 0 {
		t.Fatal("first run created no nodes")
	}
	objects := ms.Len()

	second, err := client.ProcessBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Progress.NodesCreated != 0 || second.Progress.EdgesCreated != 0 {
		t.Errorf("rerun must be a no-op, created %d nodes and %d edges",
			second.Progress.NodesCreated, second.Progress.EdgesCreated)
	}
	if ms.Len() != objects {
		t.Errorf("rerun changed object count from %d to %d", objects, ms.Len())
	}
}

func TestCompanyFormattingVariantsResolveToOneBusiness(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{
			{"companyName": "Acme Plumbing, LLC.", "phone": "555-123-4567"},
			{"company": "ACME PLUMBING LLC", "phone": "555-987-6543"},
		}},
	}}
	client, _, ms := newTestETL(t, NewClientParams{Source: source})
	ctx := context.Background()

	if _, err := client.ProcessBucket(ctx, "bucket-a"); err != nil {
		t.Fatalf("ProcessBucket failed: %v", err)
	}

	keys, err := ms.List(ctx, "graph/nodes/business/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected one business node, got %d", len(keys))
	}
}

func TestContactsSharingNameStayDistinct(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{
			{"fullName": "John Smith", "phone": "555-123-4567"},
			{"fullName": "John Smith", "phone": "555-987-6543"},
		}},
	}}
	client, _, ms := newTestETL(t, NewClientParams{Source: source})
	ctx := context.Background()

	if _, err := client.ProcessBucket(ctx, "bucket-a"); err != nil {
		t.Fatalf("ProcessBucket failed: %v", err)
	}

	keys, err := ms.List(ctx, "graph/nodes/contact/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected two distinct contact nodes, got %d", len(keys))
	}
}

func TestMalformedRecordCountedNotFatal(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{
			{"notes": "nothing usable here"},
			johnSmithRecord(),
		}},
	}}
	client, _, _ := newTestETL(t, NewClientParams{Source: source})

	result, err := client.ProcessBucket(context.Background(), "bucket-a")
	if err != nil {
		t.Fatalf("ProcessBucket failed: %v", err)
	}
	if result.Progress.Processed != 2 {
		t.Errorf("processed = %d, want 2", result.Progress.Processed)
	}
	if result.Progress.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Progress.Failed)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "no usable identity fields") {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestProcessBucketUnknownBucketFails(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{}}
	client, _, _ := newTestETL(t, NewClientParams{Source: source})

	_, err := client.ProcessBucket(context.Background(), "missing")
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestIncrementalRunAdvancesWatermark(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{
			{"fullName": "John Smith", "phone": "555-123-4567"},
			{"fullName": "Jane Doe", "phone": "555-987-6543"},
		}},
	}}
	client, _, _ := newTestETL(t, NewClientParams{Source: source})
	ctx := context.Background()

	first, err := client.ProcessIncrementalBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("first incremental run failed: %v", err)
	}
	if first.Progress.Processed != 2 || first.Watermark != 2 {
		t.Fatalf("first run progress %+v watermark %d", first.Progress, first.Watermark)
	}

	// No new records: nothing to do.
	second, err := client.ProcessIncrementalBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("second incremental run failed: %v", err)
	}
	if second.Progress.Processed != 0 || second.Watermark != 2 {
		t.Fatalf("second run progress %+v watermark %d", second.Progress, second.Watermark)
	}

	source.appendRecords("bucket-a", Record{"fullName": "Sam Mason", "phone": "555-555-0123"})

	third, err := client.ProcessIncrementalBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("third incremental run failed: %v", err)
	}
	if third.Progress.Processed != 1 || third.Watermark != 3 {
		t.Fatalf("third run progress %+v watermark %d", third.Progress, third.Watermark)
	}
	if third.Progress.NodesCreated == 0 {
		t.Error("new record should create nodes")
	}
}

func TestQueueBucketForETLSynchronousFallback(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{johnSmithRecord()}},
	}}
	jobs := newFakeJobs()
	client, _, _ := newTestETL(t, NewClientParams{Source: source, Jobs: jobs})
	ctx := context.Background()

	jobID, err := client.QueueBucketForETL(ctx, "bucket-a", ModeFull)
	if err != nil {
		t.Fatalf("QueueBucketForETL failed: %v", err)
	}

	status, err := client.GetETLStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetETLStatus failed: %v", err)
	}
	if status.Status != common.JobCompleted {
		t.Errorf("job status = %q, want %q", status.Status, common.JobCompleted)
	}
	if status.Progress.Processed != 1 {
		t.Errorf("job progress = %+v", status.Progress)
	}
}

type capturingQueue struct {
	mu   sync.Mutex
	msgs []ETLJobMsg
}

func (q *capturingQueue) PublishETLJob(ctx context.Context, msg ETLJobMsg) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

func TestQueueBucketForETLPublishes(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{johnSmithRecord()}},
	}}
	jobs := newFakeJobs()
	queue := &capturingQueue{}
	client, _, _ := newTestETL(t, NewClientParams{Source: source, Jobs: jobs, Queue: queue})
	ctx := context.Background()

	jobID, err := client.QueueBucketForETL(ctx, "bucket-a", ModeIncremental)
	if err != nil {
		t.Fatalf("QueueBucketForETL failed: %v", err)
	}
	if len(queue.msgs) != 1 {
		t.Fatalf("expected one published message, got %d", len(queue.msgs))
	}
	msg := queue.msgs[0]
	if msg.JobID != jobID || msg.BucketID != "bucket-a" || msg.Mode != ModeIncremental {
		t.Errorf("unexpected message: %+v", msg)
	}

	// Nothing ran yet: the job is still pending for the worker.
	status, err := client.GetETLStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetETLStatus failed: %v", err)
	}
	if status.Status != common.JobPending {
		t.Errorf("job status = %q, want %q", status.Status, common.JobPending)
	}
}

func TestRunJobRecordsFailure(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{}}
	jobs := newFakeJobs()
	client, _, _ := newTestETL(t, NewClientParams{Source: source, Jobs: jobs})
	ctx := context.Background()

	jobID, err := jobs.Create(ctx, "missing", ModeFull)
	if err != nil {
		t.Fatalf("create job failed: %v", err)
	}

	err = client.RunJob(ctx, ETLJobMsg{JobID: jobID, BucketID: "missing", Mode: ModeFull})
	if err == nil {
		t.Fatal("expected RunJob to fail for an unreadable bucket")
	}

	status, err := jobs.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status.Status != common.JobFailed {
		t.Errorf("job status = %q, want %q", status.Status, common.JobFailed)
	}
	if status.Error == "" {
		t.Error("failed job should carry a diagnostic message")
	}
}

func TestProcessAllBuckets(t *testing.T) {
	source := &fakeSource{buckets: map[string]*Bucket{
		"bucket-a": {ID: "bucket-a", Records: []Record{johnSmithRecord()}},
		"bucket-b": {ID: "bucket-b", Records: []Record{
			{"companyName": "Riverside Holdings LLC", "email": "info@riverside.example"},
		}},
	}}
	client, _, _ := newTestETL(t, NewClientParams{Source: source})

	results, err := client.ProcessAllBuckets(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllBuckets failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Progress.Failed != 0 {
			t.Errorf("bucket %s had failures: %+v", result.BucketID, result.Progress)
		}
	}
}

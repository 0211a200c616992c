package etl

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nextier/graph-etl/pkg/store/memory"
)

func TestStoreBucketSourceFetchJSON(t *testing.T) {
	ms := memory.NewMemoryStore()
	ctx := context.Background()
	index := `{
		"name": "Springfield Leads",
		"source": "property-search",
		"properties": [
			{"fullName": "John Smith", "phone": "(555) 123-4567"},
			{"companyName": "Acme Plumbing LLC"}
		]
	}`
	if err := ms.Put(ctx, "buckets/bucket-a/index.json", []byte(index)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	source := NewStoreBucketSource(ms)
	bucket, err := source.FetchBucket(ctx, "bucket-a")
	if err != nil {
		t.Fatalf("FetchBucket failed: %v", err)
	}
	if bucket.ID != "bucket-a" {
		t.Errorf("bucket ID = %q, want the requested ID as fallback", bucket.ID)
	}
	if bucket.Name != "Springfield Leads" {
		t.Errorf("bucket name = %q", bucket.Name)
	}
	if len(bucket.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(bucket.Records))
	}
	if bucket.Records[0]["fullName"] != "John Smith" {
		t.Errorf("unexpected first record: %v", bucket.Records[0])
	}
}

func TestStoreBucketSourceFetchCSVFallback(t *testing.T) {
	ms := memory.NewMemoryStore()
	ctx := context.Background()
	csvData := "Company Name,Phone Number,City,State\n" +
		"Acme Plumbing LLC,(555) 123-4567,Springfield,IL\n" +
		"Riverside Holdings,,Portland,OR\n"
	if err := ms.Put(ctx, "buckets/bucket-b/records.csv", []byte(csvData)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	source := NewStoreBucketSource(ms)
	bucket, err := source.FetchBucket(ctx, "bucket-b")
	if err != nil {
		t.Fatalf("FetchBucket failed: %v", err)
	}
	if len(bucket.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(bucket.Records))
	}
	want := Record{
		"Company Name": "Acme Plumbing LLC",
		"Phone Number": "(555) 123-4567",
		"City":         "Springfield",
		"State":        "IL",
	}
	if !reflect.DeepEqual(bucket.Records[0], want) {
		t.Errorf("record = %v, want %v", bucket.Records[0], want)
	}
	// Empty CSV cells must not become empty-string fields.
	if _, ok := bucket.Records[1]["Phone Number"]; ok {
		t.Error("empty cell should be absent from the record")
	}
}

func TestStoreBucketSourceMissingBucket(t *testing.T) {
	source := NewStoreBucketSource(memory.NewMemoryStore())
	_, err := source.FetchBucket(context.Background(), "nope")
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestStoreBucketSourceListBucketIDs(t *testing.T) {
	ms := memory.NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{
		"buckets/bucket-b/index.json",
		"buckets/bucket-a/index.json",
		"buckets/bucket-a/records.csv",
	} {
		if err := ms.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	source := NewStoreBucketSource(ms)
	ids, err := source.ListBucketIDs(ctx)
	if err != nil {
		t.Fatalf("ListBucketIDs failed: %v", err)
	}
	want := []string{"bucket-a", "bucket-b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListBucketIDs = %v, want %v", ids, want)
	}
}

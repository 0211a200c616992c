package etl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nextier/graph-etl/internal/util"
	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/logger"
	"github.com/nextier/graph-etl/pkg/normalize"
)

// Node confidence by extraction path. Direct identifiers (phones, emails)
// score highest; skip-traced owners lowest.
const (
	confidenceBusiness     = 0.9
	confidenceContact      = 0.85
	confidencePhone        = 0.95
	confidenceEmail        = 0.95
	confidenceAddress      = 0.9
	confidenceProperty     = 0.85
	confidencePropertyStub = 0.7
	confidenceOwner        = 0.8
)

const recordRetryBaseDelay = 200 * time.Millisecond

type recordOutcome struct {
	nodesCreated int
	nodesMerged  int
	edgesCreated int
}

// processRecord resolves one raw record into node and edge writes. Everything
// written here is an idempotent merge, so a retried or replayed record is
// harmless.
func (c *Client) processRecord(ctx context.Context, r Record, bucketID string, index int) (recordOutcome, error) {
	out := recordOutcome{}
	recordID := asString(r["id"])
	if recordID == "" {
		recordID = fmt.Sprintf("%s-%d", bucketID, index)
	}

	company := extractCompany(r)
	contact := extractContactName(r)
	phones := extractPhones(r)
	emails := extractEmails(r)
	address := extractAddress(r)
	owner := extractOwner(r)
	property := hasPropertyData(r)

	if company == "" && contact == nil && len(phones) == 0 && len(emails) == 0 &&
		address == nil && owner == nil && !property {
		return out, errors.New("no usable identity fields")
	}

	writeNode := func(nodeType common.NodeType, key string, attrs map[string]string, confidence float64) (string, error) {
		node, created, err := c.graph.WriteNode(ctx, nodeType, key, attrs, bucketID, confidence)
		if err != nil {
			return "", err
		}
		if created {
			out.nodesCreated++
		} else {
			out.nodesMerged++
		}
		return node.ID, nil
	}
	writeEdge := func(edgeType common.EdgeType, from, to string, attrs map[string]string) error {
		_, created, err := c.graph.WriteEdge(ctx, edgeType, from, to, attrs, 1.0)
		if err != nil {
			return err
		}
		if created {
			out.edgesCreated++
		}
		return nil
	}

	var businessID string
	if company != "" {
		id, err := writeNode(common.NodeBusiness, company, map[string]string{
			"name":           company,
			"originalName":   r.str(companyFields),
			"sicCode":        normalize.SIC(r.str(sicFields)),
			"industry":       r.str(industryFields),
			"employees":      r.str(employeeFields),
			"revenue":        r.str(revenueFields),
			"website":        r.str(websiteFields),
			"sourceRecordId": recordID,
		}, confidenceBusiness)
		if err != nil {
			return out, err
		}
		businessID = id
	}

	// The contact key folds in the strongest secondary identifier available
	// so distinct people sharing a name stay distinct.
	var contactID string
	if contact != nil {
		key := contact.Full
		switch {
		case len(phones) > 0:
			key += "|" + phones[0]
		case address != nil:
			key += "|" + address.Key
		}
		id, err := writeNode(common.NodeContact, key, map[string]string{
			"firstName":      contact.First,
			"lastName":       contact.Last,
			"fullName":       contact.Full,
			"title":          r.str(titleFields),
			"company":        company,
			"sourceRecordId": recordID,
		}, confidenceContact)
		if err != nil {
			return out, err
		}
		contactID = id

		if businessID != "" {
			if err := writeEdge(common.EdgeWorksAt, contactID, businessID,
				map[string]string{"title": r.str(titleFields)}); err != nil {
				return out, err
			}
		}
	}

	// Phones and emails hang off the contact when one exists, otherwise off
	// the business.
	endpointID := contactID
	if endpointID == "" {
		endpointID = businessID
	}
	for _, phone := range phones {
		id, err := writeNode(common.NodePhone, phone, map[string]string{
			"number":    phone,
			"formatted": formatPhone(phone),
		}, confidencePhone)
		if err != nil {
			return out, err
		}
		if endpointID != "" {
			if err := writeEdge(common.EdgeHasPhone, endpointID, id, nil); err != nil {
				return out, err
			}
		}
	}
	for _, email := range emails {
		_, domain, _ := cutEmail(email)
		id, err := writeNode(common.NodeEmail, email, map[string]string{
			"address": email,
			"domain":  domain,
		}, confidenceEmail)
		if err != nil {
			return out, err
		}
		if endpointID != "" {
			if err := writeEdge(common.EdgeHasEmail, endpointID, id, nil); err != nil {
				return out, err
			}
		}
	}

	var addressID string
	if address != nil {
		id, err := writeNode(common.NodeAddress, address.Key, map[string]string{
			"street": address.Street,
			"city":   address.City,
			"state":  address.State,
			"zip":    address.Zip,
		}, confidenceAddress)
		if err != nil {
			return out, err
		}
		addressID = id

		if businessID != "" {
			if err := writeEdge(common.EdgeLocatedAt, businessID, addressID, nil); err != nil {
				return out, err
			}
		}
		if contactID != "" {
			if err := writeEdge(common.EdgeLocatedAt, contactID, addressID, nil); err != nil {
				return out, err
			}
		}
	}

	propertyKey := "prop-" + recordID
	if address != nil {
		propertyKey = address.Key
	}

	var propertyID string
	if property {
		id, err := writeNode(common.NodeProperty, propertyKey, propertyAttributes(r), confidenceProperty)
		if err != nil {
			return out, err
		}
		propertyID = id

		if addressID != "" {
			if err := writeEdge(common.EdgeLocatedAt, propertyID, addressID, nil); err != nil {
				return out, err
			}
		}
		if businessID != "" {
			if err := writeEdge(common.EdgeOccupies, businessID, propertyID, nil); err != nil {
				return out, err
			}
		}
	}

	if owner != nil {
		ownerID, err := writeNode(common.NodeOwner, owner.Name, map[string]string{
			"name":           owner.Name,
			"mailingAddress": owner.MailingAddress,
			"sourceRecordId": recordID,
		}, confidenceOwner)
		if err != nil {
			return out, err
		}

		// Skip-traced owners imply a property at the record's address even
		// when the record itself carries no property fields.
		if addressID != "" {
			if propertyID == "" {
				id, err := writeNode(common.NodeProperty, propertyKey,
					map[string]string{"sourceRecordId": recordID}, confidencePropertyStub)
				if err != nil {
					return out, err
				}
				propertyID = id
				if err := writeEdge(common.EdgeLocatedAt, propertyID, addressID, nil); err != nil {
					return out, err
				}
			}
			if err := writeEdge(common.EdgeOwns, ownerID, propertyID, nil); err != nil {
				return out, err
			}
		}
	}

	return out, nil
}

// run drives one processing pass over a bucket. The returned result is
// populated even when err is non-nil, so callers can report how much work was
// durably committed before an abort.
func (c *Client) run(ctx context.Context, bucketID, mode, jobID string) (*common.ETLResult, error) {
	start := time.Now()
	result := &common.ETLResult{BucketID: bucketID}

	bucket, err := c.source.FetchBucket(ctx, bucketID)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.BucketName = bucket.Name

	offset := 0
	if mode == ModeIncremental {
		wm, err := c.loadWatermark(ctx, bucketID)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		offset = wm.LastIndex
		if offset > len(bucket.Records) {
			offset = len(bucket.Records)
		}
	}
	records := bucket.Records[offset:]
	result.Progress.Total = len(records)

	logger.Info("Processing bucket",
		"bucket", bucketID, "name", bucket.Name, "mode", mode,
		"records", len(records), "offset", offset)

	progress, errs, runErr := c.processRecords(ctx, bucketID, records, offset, jobID)
	progress.Total = len(records)
	result.Progress = progress
	result.Errors = errs
	result.Duration = time.Since(start)

	if runErr != nil {
		return result, runErr
	}

	if err := c.saveWatermark(ctx, bucketID, len(bucket.Records)); err != nil {
		return result, err
	}
	result.Watermark = len(bucket.Records)

	logger.Info("Completed bucket",
		"bucket", bucketID, "processed", progress.Processed, "failed", progress.Failed,
		"nodes_created", progress.NodesCreated, "edges_created", progress.EdgesCreated,
		"duration", result.Duration)
	return result, nil
}

// processRecords fans the batch out over a bounded worker pool. Record-level
// failures are counted, never propagated; only context cancellation stops the
// run early.
func (c *Client) processRecords(
	ctx context.Context,
	bucketID string,
	records []Record,
	offset int,
	jobID string,
) (common.Progress, []string, error) {
	var processed, failed, nodesCreated, nodesMerged, edgesCreated atomic.Int64
	var mu sync.Mutex
	var errs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, record := range records {
		index := offset + i
		r := record
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var out recordOutcome
			err := util.RetryErrWithBackoff(gctx, c.maxRetries, recordRetryBaseDelay, func(ctx context.Context) error {
				var innerErr error
				out, innerErr = c.processRecord(ctx, r, bucketID, index)
				return innerErr
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				mu.Lock()
				errs = append(errs, fmt.Sprintf("record %d: %v", index, err))
				mu.Unlock()
			}

			nodesCreated.Add(int64(out.nodesCreated))
			nodesMerged.Add(int64(out.nodesMerged))
			edgesCreated.Add(int64(out.edgesCreated))

			n := processed.Add(1)
			if n%100 == 0 {
				logger.Info("Bucket progress", "bucket", bucketID, "processed", n, "total", len(records))
				c.reportProgress(gctx, jobID, snapshot(len(records), &processed, &failed, &nodesCreated, &nodesMerged, &edgesCreated))
			}
			return nil
		})
	}

	err := g.Wait()
	progress := snapshot(len(records), &processed, &failed, &nodesCreated, &nodesMerged, &edgesCreated)
	return progress, errs, err
}

func snapshot(total int, processed, failed, nodesCreated, nodesMerged, edgesCreated *atomic.Int64) common.Progress {
	return common.Progress{
		Processed:    int(processed.Load()),
		Total:        total,
		Failed:       int(failed.Load()),
		NodesCreated: int(nodesCreated.Load()),
		NodesMerged:  int(nodesMerged.Load()),
		EdgesCreated: int(edgesCreated.Load()),
	}
}

func (c *Client) reportProgress(ctx context.Context, jobID string, progress common.Progress) {
	if c.jobs == nil || jobID == "" {
		return
	}
	if err := c.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
		logger.Warn("Failed to update job progress", "job", jobID, "error", err)
	}
}

// ProcessBucket reprocesses every record in a bucket. Safe to repeat: all
// writes are merges, so a second full run produces zero net new nodes/edges.
func (c *Client) ProcessBucket(ctx context.Context, bucketID string) (*common.ETLResult, error) {
	return c.run(ctx, bucketID, ModeFull, "")
}

// ProcessIncrementalBucket processes only records added since the last
// successful run, per the bucket's stored watermark.
func (c *Client) ProcessIncrementalBucket(ctx context.Context, bucketID string) (*common.ETLResult, error) {
	return c.run(ctx, bucketID, ModeIncremental, "")
}

// ProcessAllBuckets runs a full pass over every bucket in the store. Bucket
// failures are reported in the results and do not stop the sweep.
func (c *Client) ProcessAllBuckets(ctx context.Context) ([]*common.ETLResult, error) {
	bucketIDs, err := c.source.ListBucketIDs(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Processing all buckets", "count", len(bucketIDs))

	results := make([]*common.ETLResult, 0, len(bucketIDs))
	for _, bucketID := range bucketIDs {
		result, err := c.ProcessBucket(ctx, bucketID)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			logger.Error("Bucket processing failed", "bucket", bucketID, "error", err)
			result.Errors = append(result.Errors, err.Error())
		}
		results = append(results, result)
	}
	return results, nil
}

// RunJob executes one queued ETL job and records its lifecycle through the
// job sink.
func (c *Client) RunJob(ctx context.Context, msg ETLJobMsg) error {
	if c.jobs != nil && msg.JobID != "" {
		if err := c.jobs.MarkProcessing(ctx, msg.JobID); err != nil {
			return fmt.Errorf("failed to mark job %s processing: %w", msg.JobID, err)
		}
	}

	mode := msg.Mode
	if mode == "" {
		mode = ModeFull
	}
	result, err := c.run(ctx, msg.BucketID, mode, msg.JobID)

	if c.jobs != nil && msg.JobID != "" {
		if err != nil {
			if sinkErr := c.jobs.Fail(ctx, msg.JobID, err.Error()); sinkErr != nil {
				logger.Error("Failed to record job failure", "job", msg.JobID, "error", sinkErr)
			}
		} else if sinkErr := c.jobs.Complete(ctx, msg.JobID, result); sinkErr != nil {
			logger.Error("Failed to record job completion", "job", msg.JobID, "error", sinkErr)
		}
	}
	return err
}

// QueueBucketForETL registers a job and hands it to the worker queue. Without
// a configured queue the job runs synchronously, which keeps single-process
// deployments working.
func (c *Client) QueueBucketForETL(ctx context.Context, bucketID, mode string) (string, error) {
	if mode == "" {
		mode = ModeFull
	}

	var jobID string
	if c.jobs != nil {
		id, err := c.jobs.Create(ctx, bucketID, mode)
		if err != nil {
			return "", fmt.Errorf("failed to create job for bucket %s: %w", bucketID, err)
		}
		jobID = id
	}

	correlationID, _ := gonanoid.New()
	msg := ETLJobMsg{
		JobID:         jobID,
		BucketID:      bucketID,
		Mode:          mode,
		CorrelationID: correlationID,
	}

	if c.queue == nil {
		return jobID, c.RunJob(ctx, msg)
	}
	if err := c.queue.PublishETLJob(ctx, msg); err != nil {
		if c.jobs != nil && jobID != "" {
			if sinkErr := c.jobs.Fail(ctx, jobID, "failed to enqueue: "+err.Error()); sinkErr != nil {
				logger.Error("Failed to record enqueue failure", "job", jobID, "error", sinkErr)
			}
		}
		return "", fmt.Errorf("failed to enqueue bucket %s: %w", bucketID, err)
	}
	return jobID, nil
}

// GetETLStatus returns the current state of a job.
func (c *Client) GetETLStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if c.jobs == nil {
		return nil, fmt.Errorf("job tracking is not configured")
	}
	return c.jobs.Get(ctx, jobID)
}

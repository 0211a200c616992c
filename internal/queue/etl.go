package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/nextier/graph-etl/pkg/etl"
	"github.com/nextier/graph-etl/pkg/logger"
)

// ETLPublisher enqueues ETL jobs for the worker process.
type ETLPublisher struct {
	ch *amqp091.Channel
}

func NewETLPublisher(ch *amqp091.Channel) *ETLPublisher {
	return &ETLPublisher{ch: ch}
}

var _ etl.Publisher = (*ETLPublisher)(nil)

func (p *ETLPublisher) PublishETLJob(ctx context.Context, msg etl.ETLJobMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := PublishFIFO(p.ch, ETLQueue, data); err != nil {
		return fmt.Errorf("failed to publish etl job: %w", err)
	}
	logger.Info("Queued ETL job",
		"job", msg.JobID, "bucket", msg.BucketID, "mode", msg.Mode,
		"correlation_id", msg.CorrelationID)
	return nil
}

// ProcessETLMessage handles one message from the ETL queue. Returning an
// error sends the message through the retry/DLQ path.
func ProcessETLMessage(ctx context.Context, etlClient *etl.Client, msg string) error {
	data := new(etl.ETLJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed etl job message: %w", err)
	}
	if data.BucketID == "" {
		return fmt.Errorf("etl job message missing bucket id")
	}

	logger.Info("Processing ETL job",
		"job", data.JobID, "bucket", data.BucketID, "mode", data.Mode,
		"correlation_id", data.CorrelationID)
	return etlClient.RunJob(ctx, *data)
}

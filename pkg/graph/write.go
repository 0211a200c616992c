package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/store"
)

// NodeInput describes one node write.
type NodeInput struct {
	Type       common.NodeType
	Key        string
	Attributes map[string]string
	Confidence float64
}

// EdgeInput describes one edge write.
type EdgeInput struct {
	Type       common.EdgeType
	FromNodeID string
	ToNodeID   string
	Attributes map[string]string
	Confidence float64
}

// WriteOutcome reports the result of one item in a batch write. Batches have
// no atomicity guarantee; each item succeeds or fails on its own, which is
// acceptable because every individual write is idempotent and retryable.
type WriteOutcome struct {
	ID      string
	Created bool
	Err     error
}

// WriteNode upserts the node identified by (nodeType, key). If absent it is
// created; if present, attributes merge first-non-empty-wins, the source set
// unions in sourceID, confidence keeps its maximum and UpdatedAt is bumped.
// The returned flag is true when the node was created.
//
// Concurrent writers targeting the same key are resolved by ETag-conditioned
// writes: on conflict the current state is re-read and re-merged.
func (c *GraphClient) WriteNode(
	ctx context.Context,
	nodeType common.NodeType,
	key string,
	attributes map[string]string,
	sourceID string,
	confidence float64,
) (*common.GraphNode, bool, error) {
	if !common.ValidNodeType(nodeType) {
		return nil, false, fmt.Errorf("unknown node type %q", nodeType)
	}
	if key == "" {
		return nil, false, fmt.Errorf("empty node key for type %q", nodeType)
	}

	id := NodeID(nodeType, key)
	path := nodePath(nodeType, id)
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		data, etag, err := c.store.Get(ctx, path)
		now := time.Now().UTC()

		if errors.Is(err, store.ErrNotFound) {
			node := &common.GraphNode{
				ID:         id,
				Type:       nodeType,
				Key:        key,
				Attributes: mergeAttributes(nil, attributes),
				Sources:    mergeSources(nil, sourceID),
				Confidence: confidence,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			body, err := json.Marshal(node)
			if err != nil {
				return nil, false, fmt.Errorf("failed to marshal node: %w", err)
			}
			err = c.store.PutIf(ctx, path, body, "")
			if errors.Is(err, store.ErrConflict) {
				// A concurrent writer created it first; merge instead.
				lastErr = err
				continue
			}
			if err != nil {
				return nil, false, err
			}
			return node, true, nil
		}
		if err != nil {
			return nil, false, err
		}

		var node common.GraphNode
		if err := json.Unmarshal(data, &node); err != nil {
			return nil, false, fmt.Errorf("corrupt node object %s: %w", path, err)
		}

		node.Attributes = mergeAttributes(node.Attributes, attributes)
		node.Sources = mergeSources(node.Sources, sourceID)
		node.Confidence = maxConfidence(node.Confidence, confidence)
		node.UpdatedAt = now

		body, err := json.Marshal(&node)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal node: %w", err)
		}
		err = c.store.PutIf(ctx, path, body, etag)
		if errors.Is(err, store.ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return &node, false, nil
	}

	return nil, false, fmt.Errorf("node %s/%s still contended after %d attempts: %w", nodeType, id, c.maxRetries, lastErr)
}

// WriteEdge upserts the edge identified by (edgeType, fromNodeID, toNodeID)
// with the same merge discipline as WriteNode. After the edge object is
// durable, by-from and by-to adjacency pointers are written; pointer writes
// are idempotent copies of the edge object, and ordering guarantees a reader
// that finds a pointer always finds the edge.
func (c *GraphClient) WriteEdge(
	ctx context.Context,
	edgeType common.EdgeType,
	fromNodeID string,
	toNodeID string,
	attributes map[string]string,
	confidence float64,
) (*common.GraphEdge, bool, error) {
	if fromNodeID == "" || toNodeID == "" {
		return nil, false, fmt.Errorf("edge %q requires both endpoints", edgeType)
	}

	id := EdgeID(edgeType, fromNodeID, toNodeID)
	path := edgePath(edgeType, id)
	var (
		result  *common.GraphEdge
		created bool
		lastErr error
	)

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		data, etag, err := c.store.Get(ctx, path)
		now := time.Now().UTC()

		if errors.Is(err, store.ErrNotFound) {
			edge := &common.GraphEdge{
				ID:         id,
				Type:       edgeType,
				FromNodeID: fromNodeID,
				ToNodeID:   toNodeID,
				Attributes: mergeAttributes(nil, attributes),
				Confidence: confidence,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			body, err := json.Marshal(edge)
			if err != nil {
				return nil, false, fmt.Errorf("failed to marshal edge: %w", err)
			}
			err = c.store.PutIf(ctx, path, body, "")
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				continue
			}
			if err != nil {
				return nil, false, err
			}
			result, created = edge, true
			break
		}
		if err != nil {
			return nil, false, err
		}

		var edge common.GraphEdge
		if err := json.Unmarshal(data, &edge); err != nil {
			return nil, false, fmt.Errorf("corrupt edge object %s: %w", path, err)
		}

		edge.Attributes = mergeAttributes(edge.Attributes, attributes)
		edge.Confidence = maxConfidence(edge.Confidence, confidence)
		edge.UpdatedAt = now

		body, err := json.Marshal(&edge)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal edge: %w", err)
		}
		err = c.store.PutIf(ctx, path, body, etag)
		if errors.Is(err, store.ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, false, err
		}
		result = &edge
		break
	}

	if result == nil {
		return nil, false, fmt.Errorf("edge %s/%s still contended after %d attempts: %w", edgeType, id, c.maxRetries, lastErr)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal edge: %w", err)
	}
	if err := c.store.Put(ctx, edgeFromPath(fromNodeID, id), body); err != nil {
		return nil, false, fmt.Errorf("failed to write by-from pointer: %w", err)
	}
	if err := c.store.Put(ctx, edgeToPath(toNodeID, id), body); err != nil {
		return nil, false, fmt.Errorf("failed to write by-to pointer: %w", err)
	}

	return result, created, nil
}

// WriteNodesBatch applies WriteNode across inputs. Failure of one item never
// aborts the rest; every item's outcome is reported independently.
func (c *GraphClient) WriteNodesBatch(ctx context.Context, inputs []NodeInput, sourceID string) []WriteOutcome {
	outcomes := make([]WriteOutcome, 0, len(inputs))
	for _, in := range inputs {
		node, created, err := c.WriteNode(ctx, in.Type, in.Key, in.Attributes, sourceID, in.Confidence)
		outcome := WriteOutcome{Created: created, Err: err}
		if node != nil {
			outcome.ID = node.ID
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// WriteEdgesBatch applies WriteEdge across inputs with per-item outcomes.
func (c *GraphClient) WriteEdgesBatch(ctx context.Context, inputs []EdgeInput) []WriteOutcome {
	outcomes := make([]WriteOutcome, 0, len(inputs))
	for _, in := range inputs {
		edge, created, err := c.WriteEdge(ctx, in.Type, in.FromNodeID, in.ToNodeID, in.Attributes, in.Confidence)
		outcome := WriteOutcome{Created: created, Err: err}
		if edge != nil {
			outcome.ID = edge.ID
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/store"
)

// ErrNodeNotFound is returned by lookups when no node exists for the given
// identity.
var ErrNodeNotFound = errors.New("graph node not found")

// GetNodeByKey fetches the node for a (type, normalized key) pair. Because
// IDs are content-derived this is a single point lookup, no index required.
func (c *GraphClient) GetNodeByKey(ctx context.Context, nodeType common.NodeType, key string) (*common.GraphNode, error) {
	return c.GetNodeByID(ctx, nodeType, NodeID(nodeType, key))
}

// GetNodeByID fetches a node by type and ID.
func (c *GraphClient) GetNodeByID(ctx context.Context, nodeType common.NodeType, id string) (*common.GraphNode, error) {
	data, _, err := c.store.Get(ctx, nodePath(nodeType, id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	var node common.GraphNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("corrupt node object %s: %w", id, err)
	}
	return &node, nil
}

// resolveNode finds a node by ID alone by probing each type prefix. Used by
// traversal, where edges carry endpoint IDs but not types.
func (c *GraphClient) resolveNode(ctx context.Context, id string) (*common.GraphNode, error) {
	for _, nodeType := range common.NodeTypes {
		node, err := c.GetNodeByID(ctx, nodeType, id)
		if errors.Is(err, ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return node, nil
	}
	return nil, ErrNodeNotFound
}

// EdgesFromNode returns all edges whose from-endpoint is nodeID.
func (c *GraphClient) EdgesFromNode(ctx context.Context, nodeID string) ([]common.GraphEdge, error) {
	return c.listEdges(ctx, fmt.Sprintf("%s/%s/", edgeFromPrefix, nodeID))
}

// EdgesToNode returns all edges whose to-endpoint is nodeID.
func (c *GraphClient) EdgesToNode(ctx context.Context, nodeID string) ([]common.GraphEdge, error) {
	return c.listEdges(ctx, fmt.Sprintf("%s/%s/", edgeToPrefix, nodeID))
}

func (c *GraphClient) listEdges(ctx context.Context, prefix string) ([]common.GraphEdge, error) {
	keys, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var edges []common.GraphEdge
	for _, key := range keys {
		data, _, err := c.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var edge common.GraphEdge
		if err := json.Unmarshal(data, &edge); err != nil {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// EdgeExists reports whether an edge of the given type links the two nodes.
func (c *GraphClient) EdgeExists(ctx context.Context, edgeType common.EdgeType, fromNodeID, toNodeID string) (bool, error) {
	_, _, err := c.store.Get(ctx, edgePath(edgeType, EdgeID(edgeType, fromNodeID, toNodeID)))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Neighbor pairs an adjacent node with the edge that reaches it.
type Neighbor struct {
	Node common.GraphNode `json:"node"`
	Edge common.GraphEdge `json:"edge"`
	// Outgoing is true when the edge points away from the queried node.
	Outgoing bool `json:"outgoing"`
}

// FindConnectedNodes returns the one-hop neighbors of a node, in both
// directions. An empty edgeType matches all edge types. Neighbors whose node
// object cannot be resolved are skipped.
func (c *GraphClient) FindConnectedNodes(ctx context.Context, nodeID string, edgeType common.EdgeType) ([]Neighbor, error) {
	outgoing, err := c.EdgesFromNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	incoming, err := c.EdgesToNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	var neighbors []Neighbor
	appendNeighbor := func(edge common.GraphEdge, neighborID string, out bool) error {
		if edgeType != "" && edge.Type != edgeType {
			return nil
		}
		node, err := c.resolveNode(ctx, neighborID)
		if errors.Is(err, ErrNodeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		neighbors = append(neighbors, Neighbor{Node: *node, Edge: edge, Outgoing: out})
		return nil
	}

	for _, edge := range outgoing {
		if err := appendNeighbor(edge, edge.ToNodeID, true); err != nil {
			return nil, err
		}
	}
	for _, edge := range incoming {
		if err := appendNeighbor(edge, edge.FromNodeID, false); err != nil {
			return nil, err
		}
	}
	return neighbors, nil
}

// GraphStats aggregates node and edge counts by type.
type GraphStats struct {
	NodesByType map[common.NodeType]int `json:"nodes_by_type"`
	EdgesByType map[common.EdgeType]int `json:"edges_by_type"`
	TotalNodes  int                     `json:"total_nodes"`
	TotalEdges  int                     `json:"total_edges"`
}

// Stats walks the store's type-prefixed listings and counts nodes and edges.
func (c *GraphClient) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{
		NodesByType: make(map[common.NodeType]int),
		EdgesByType: make(map[common.EdgeType]int),
	}

	for _, nodeType := range common.NodeTypes {
		keys, err := c.store.List(ctx, fmt.Sprintf("%s/%s/", nodePrefix, nodeType))
		if err != nil {
			return nil, err
		}
		stats.NodesByType[nodeType] = len(keys)
		stats.TotalNodes += len(keys)
	}
	for _, edgeType := range common.EdgeTypes {
		keys, err := c.store.List(ctx, fmt.Sprintf("%s/%s/", edgePrefix, edgeType))
		if err != nil {
			return nil, err
		}
		stats.EdgesByType[edgeType] = len(keys)
		stats.TotalEdges += len(keys)
	}
	return stats, nil
}

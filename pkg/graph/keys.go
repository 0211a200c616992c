package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/nextier/graph-etl/pkg/common"
)

const (
	nodePrefix      = "graph/nodes"
	edgePrefix      = "graph/edges"
	edgeFromPrefix  = "graph/edges/by-from"
	edgeToPrefix    = "graph/edges/by-to"
	WatermarkPrefix = "graph/watermarks"
)

func contentID(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:40]
}

// NodeID derives the stable identifier for a node from its type and
// normalized natural key. Every writer that observes the same logical entity
// computes the same ID.
func NodeID(nodeType common.NodeType, key string) string {
	return contentID(string(nodeType), key)
}

// EdgeID derives the stable identifier for an edge from its type and
// endpoint node IDs.
func EdgeID(edgeType common.EdgeType, fromNodeID, toNodeID string) string {
	return contentID(string(edgeType), fromNodeID, toNodeID)
}

func nodePath(nodeType common.NodeType, id string) string {
	return fmt.Sprintf("%s/%s/%s.json", nodePrefix, nodeType, id)
}

func edgePath(edgeType common.EdgeType, id string) string {
	return fmt.Sprintf("%s/%s/%s.json", edgePrefix, edgeType, id)
}

func edgeFromPath(fromNodeID, edgeID string) string {
	return fmt.Sprintf("%s/%s/%s.json", edgeFromPrefix, fromNodeID, edgeID)
}

func edgeToPath(toNodeID, edgeID string) string {
	return fmt.Sprintf("%s/%s/%s.json", edgeToPrefix, toNodeID, edgeID)
}

// WatermarkPath is the object key holding the incremental-run high-water
// mark for a source bucket.
func WatermarkPath(bucketID string) string {
	return fmt.Sprintf("%s/%s.json", WatermarkPrefix, bucketID)
}

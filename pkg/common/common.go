package common

import "time"

// NodeType identifies the kind of real-world entity a graph node resolves to.
type NodeType string

const (
	NodeProperty NodeType = "property"
	NodeBusiness NodeType = "business"
	NodeContact  NodeType = "contact"
	NodePhone    NodeType = "phone"
	NodeEmail    NodeType = "email"
	NodeAddress  NodeType = "address"
	NodeOwner    NodeType = "owner"
)

// NodeTypes lists every valid node type, in the order used for stats output.
var NodeTypes = []NodeType{
	NodeProperty,
	NodeBusiness,
	NodeContact,
	NodePhone,
	NodeEmail,
	NodeAddress,
	NodeOwner,
}

// EdgeType identifies a directed relationship between two nodes.
type EdgeType string

const (
	EdgeOwns        EdgeType = "owns"
	EdgeWorksAt     EdgeType = "works_at"
	EdgeLocatedAt   EdgeType = "located_at"
	EdgeHasPhone    EdgeType = "has_phone"
	EdgeHasEmail    EdgeType = "has_email"
	EdgeOccupies    EdgeType = "occupies"
	EdgeContactedBy EdgeType = "contacted_by"
)

// EdgeTypes lists every valid edge type.
var EdgeTypes = []EdgeType{
	EdgeOwns,
	EdgeWorksAt,
	EdgeLocatedAt,
	EdgeHasPhone,
	EdgeHasEmail,
	EdgeOccupies,
	EdgeContactedBy,
}

// ValidNodeType reports whether t is one of the known node types.
func ValidNodeType(t NodeType) bool {
	for _, nt := range NodeTypes {
		if nt == t {
			return true
		}
	}
	return false
}

// GraphNode is one resolved entity. The ID is content-derived from Type and
// Key, so every writer that observes the same logical entity converges on the
// same stored object.
//
// For a given (Type, Key) pair at most one node exists. Repeat sightings merge
// attributes and append to Sources; nodes are never deleted by the ETL.
type GraphNode struct {
	ID         string            `json:"id"`
	Type       NodeType          `json:"type"`
	Key        string            `json:"key"`
	Attributes map[string]string `json:"attributes"`
	Sources    []string          `json:"sources"`
	Confidence float64           `json:"confidence"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// GraphEdge is a directed, typed relationship between two nodes. Edges
// reference nodes by ID and never own them. For a given
// (Type, FromNodeID, ToNodeID) triple at most one edge exists.
type GraphEdge struct {
	ID         string            `json:"id"`
	Type       EdgeType          `json:"type"`
	FromNodeID string            `json:"from_node_id"`
	ToNodeID   string            `json:"to_node_id"`
	Attributes map[string]string `json:"attributes"`
	Confidence float64           `json:"confidence"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Job status values for an ETL run.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Progress holds the running counters for one ETL job. Counters are updated
// while the run is in flight and remain meaningful after an early abort, so a
// caller can always tell how much work was durably committed.
type Progress struct {
	Processed    int `json:"processed"`
	Total        int `json:"total"`
	Failed       int `json:"failed"`
	NodesCreated int `json:"nodes_created"`
	NodesMerged  int `json:"nodes_merged"`
	EdgesCreated int `json:"edges_created"`
}

// ETLResult summarizes one processing run over a bucket.
type ETLResult struct {
	BucketID   string        `json:"bucket_id"`
	BucketName string        `json:"bucket_name"`
	Progress   Progress      `json:"progress"`
	Errors     []string      `json:"errors"`
	Duration   time.Duration `json:"duration"`
	// Watermark is the record index high-water mark after the run. Only
	// meaningful for incremental processing.
	Watermark int `json:"watermark"`
}

package model

// Entity represents a named concept node in the knowledge graph.
// The id is derived deterministically from name/type so that re-ingestion
// merges instead of duplicating.
type Entity struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Properties Metadata `json:"properties,omitempty"`
}

// Relation represents a directed, typed edge between two entity ids.
// Properties carry a numeric "weight" in [0,1].
type Relation struct {
	FromID     string   `json:"from_id"`
	ToID       string   `json:"to_id"`
	Type       string   `json:"type"` // uppercase verb phrase, e.g. CONTAINS_CHUNK
	Properties Metadata `json:"properties,omitempty"`
}

// Weight returns the relation weight, defaulting to 0.5 when unset
func (r *Relation) Weight() float64 {
	if r.Properties == nil {
		return 0.5
	}
	if w, ok := r.Properties["weight"].(float64); ok {
		return w
	}
	return 0.5
}

// RelatedEntity is one depth-limited graph neighborhood hit
type RelatedEntity struct {
	EntityID     string  `json:"entity_id"`
	RelationType string  `json:"relation_type"`
	Weight       float64 `json:"weight"`
	Depth        int     `json:"depth"`
}

// BuildResult reports the outcome of one graph-building run.
// A failed run carries Success=false and the error message so a batch
// ingestion job can continue with the next document.
type BuildResult struct {
	Success         bool   `json:"success"`
	ChunksProcessed int    `json:"chunks_processed"`
	EntitiesAdded   int    `json:"entities_added"`
	RelationsAdded  int    `json:"relations_added"`
	Error           string `json:"error,omitempty"`
}

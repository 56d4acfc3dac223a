package domain

import "math"

// IndexedPoint is the persisted unit inside the vector index.
type IndexedPoint struct {
	// ID is derived deterministically from (patient_id, internal_id).
	ID string

	// Vector is the content embedding.
	Vector []float32

	// Text is the chunk text, stored under the "text" payload key.
	Text string

	// Metadata is the chunk metadata, stored flat beside the text.
	Metadata map[string]string
}

// Payload returns the flat payload map: text plus metadata keys.
func (p IndexedPoint) Payload() map[string]string {
	payload := make(map[string]string, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		payload[k] = v
	}
	payload[PayloadText] = p.Text
	return payload
}

// Distance is the similarity metric of a collection.
type Distance string

// Supported distance metrics.
const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// IsValid returns true if the distance is recognised.
func (d Distance) IsValid() bool {
	switch d {
	case DistanceCosine, DistanceDot, DistanceEuclid:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d Distance) String() string {
	return string(d)
}

// CollectionSpec describes the collection the index owns.
type CollectionSpec struct {
	// Name is the collection (or table) name.
	Name string

	// Dimensions is the embedding vector size.
	Dimensions int

	// Distance is the similarity metric.
	Distance Distance

	// KeywordFields are payload fields indexed for exact-match filtering.
	KeywordFields []string
}

// FieldMatch is an exact-match condition on a payload field.
type FieldMatch struct {
	Key   string
	Value string
}

// PayloadFilter is a conjunction of exact-match conditions.
type PayloadFilter struct {
	Must []FieldMatch
}

// Matches reports whether payload satisfies every condition.
func (f PayloadFilter) Matches(payload map[string]string) bool {
	for _, m := range f.Must {
		if payload[m.Key] != m.Value {
			return false
		}
	}
	return true
}

// PointQuery is a filtered nearest-neighbour query.
type PointQuery struct {
	Vector []float32
	Filter PayloadFilter
	Limit  int

	// Distance is the metric to rank by. Empty means the metric the
	// collection was created with.
	Distance Distance
}

// Resolve returns d when it is a known metric and fallback otherwise.
func (d Distance) Resolve(fallback Distance) Distance {
	if d.IsValid() {
		return d
	}
	return fallback
}

// ScoredPoint is a query hit. Higher scores are more similar.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// Similarity scores b against a under distance d; higher is more similar.
// Cosine and dot return the raw similarity. Euclid returns the negated
// distance so that ordering stays "higher is better".
// Vectors of different lengths score negative infinity.
func Similarity(d Distance, a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	switch d {
	case DistanceDot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot
	case DistanceEuclid:
		var sum float64
		for i := range a {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return -math.Sqrt(sum)
	default:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}

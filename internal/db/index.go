package db

import (
	"errors"
	"fmt"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance. Scores from SearchKNN are 1 - distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW algorithm.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses the FLAT (brute-force) algorithm.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates the field types a specialty index can hold.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field usable in range filters.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag
	// IndexFieldVector is a FLOAT32 vector field.
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType
	// Sortable keeps a numeric field in the sort table (SORTABLE).
	Sortable bool

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW M, 0 keeps the server default
	VectorEFConstruct int // HNSW EF_CONSTRUCTION, 0 keeps the server default
}

// IndexDefinition is an FT index over hashes, used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field name is required at index %d", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = struct{}{}

		if err := f.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *IndexField) validate() error {
	switch f.Type {
	case IndexFieldNumeric:
	case IndexFieldTag:
		if f.Sortable {
			return fmt.Errorf("field %s: only numeric fields can be sortable", f.Name)
		}
	case IndexFieldVector:
		if f.VectorDim <= 0 {
			return fmt.Errorf("field %s: vector field requires positive DIM", f.Name)
		}
		if f.VectorAlgo != VectorHNSW && f.VectorAlgo != VectorFlat {
			return fmt.Errorf("field %s: vector field requires an algorithm", f.Name)
		}
	default:
		return fmt.Errorf("field %s: unknown field type %d", f.Name, f.Type)
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}

package index

import (
	"strconv"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/embed"
	"github.com/Aman-CERP/travelrag/internal/store"
)

// InconsistencyType categorizes a difference between a saved snapshot and
// the current configuration.
type InconsistencyType int

const (
	// InconsistencyModelChanged means the stored vectors came from another
	// embedding model; query vectors would not be comparable.
	InconsistencyModelChanged InconsistencyType = iota
	// InconsistencyDimensionMismatch means the stored vectors have a different width.
	InconsistencyDimensionMismatch
	// InconsistencyChunkingChanged means chunk size or overlap differ.
	InconsistencyChunkingChanged
	// InconsistencyTokenizerChanged means chunks were sized with another tokenizer.
	InconsistencyTokenizerChanged
)

func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyModelChanged:
		return "model_changed"
	case InconsistencyDimensionMismatch:
		return "dimension_mismatch"
	case InconsistencyChunkingChanged:
		return "chunking_changed"
	case InconsistencyTokenizerChanged:
		return "tokenizer_changed"
	default:
		return "unknown"
	}
}

// Inconsistency is one detected difference.
type Inconsistency struct {
	Type    InconsistencyType
	Stored  string
	Current string
}

// CheckResult is the outcome of CheckSnapshot.
type CheckResult struct {
	Inconsistencies []Inconsistency
}

// Has reports whether an inconsistency of type t was found.
func (r CheckResult) Has(t InconsistencyType) bool {
	for _, inc := range r.Inconsistencies {
		if inc.Type == t {
			return true
		}
	}
	return false
}

// SemanticUsable reports whether the stored vectors can be searched with the
// current embedder. Chunking differences only make the snapshot stale.
func (r CheckResult) SemanticUsable() bool {
	return !r.Has(InconsistencyModelChanged) && !r.Has(InconsistencyDimensionMismatch)
}

// Stale reports whether re-indexing would produce different chunks.
func (r CheckResult) Stale() bool {
	return r.Has(InconsistencyChunkingChanged) || r.Has(InconsistencyTokenizerChanged)
}

// CheckSnapshot compares the state recorded with snap against the current
// embedder and chunker. Keys missing from the state are not compared, and
// an embedder that does not know its width yet skips the dimension check.
func CheckSnapshot(snap *store.Snapshot, embedder embed.Embedder, chunker *chunk.Chunker) CheckResult {
	var res CheckResult
	add := func(t InconsistencyType, stored, current string) {
		res.Inconsistencies = append(res.Inconsistencies, Inconsistency{Type: t, Stored: stored, Current: current})
	}
	state := snap.State

	if len(snap.Embeddings) > 0 && embedder != nil {
		if model, ok := state[store.StateKeyEmbeddingModel]; ok && model != embedder.ModelName() {
			add(InconsistencyModelChanged, model, embedder.ModelName())
		}
		if dims := embedder.Dimensions(); dims > 0 && len(snap.Embeddings[0]) != dims {
			add(InconsistencyDimensionMismatch, strconv.Itoa(len(snap.Embeddings[0])), strconv.Itoa(dims))
		}
	}

	if chunker != nil {
		if tok, ok := state[store.StateKeyTokenizer]; ok && tok != chunker.TokenizerName() {
			add(InconsistencyTokenizerChanged, tok, chunker.TokenizerName())
		}
		opts := chunker.Options()
		size, sizeOK := state[store.StateKeyChunkSize]
		overlap, overlapOK := state[store.StateKeyChunkOverlap]
		current := strconv.Itoa(opts.Size) + "/" + strconv.Itoa(opts.Overlap)
		if sizeOK && overlapOK && size+"/"+overlap != current {
			add(InconsistencyChunkingChanged, size+"/"+overlap, current)
		}
	}
	return res
}

// Package chunk splits source documents into overlapping, token-bounded
// chunks ready for indexing.
package chunk

const (
	// DefaultChunkSize is the maximum tokens per chunk.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the tokens shared by consecutive windows.
	DefaultChunkOverlap = 100

	// DocumentType is the "type" metadata value for corpus files.
	DocumentType = "travel_data"

	// UnknownSource is used when chunk metadata carries no "source".
	UnknownSource = "unknown"
)

// Options configures window sizing. Both values are in LengthTokenizer tokens.
type Options struct {
	Size    int
	Overlap int
}

// DefaultOptions returns size 500, overlap 100.
func DefaultOptions() Options {
	return Options{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Section is a named slice of a file produced by a SectionSplitter.
type Section struct {
	Name string
	Text string
}

// SectionSplitter divides a file into named sections before windowing.
// Implementations must return sections covering the text in order.
type SectionSplitter interface {
	Split(text string) []Section
}

// SourceFile is one corpus document as read from disk.
type SourceFile struct {
	Path    string
	Content []byte
}

// FileError records a file that could not be chunked. Ingestion skips it
// and continues with the rest of the corpus.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

package driven

import "context"

// PDFExtractor pulls plain text out of raw PDF bytes. Object storage I/O
// happens in the upload layer; the extractor only sees resolved bytes.
type PDFExtractor interface {
	// ExtractText returns the document text with page markers.
	// Extraction problems are reported as errors; indexing callers
	// degrade them to an empty-content outcome rather than failing.
	ExtractText(ctx context.Context, data []byte) (string, error)
}

package chunker

// Splitting defaults tuned for retrieval: chunks small enough to embed
// cheaply, overlapping enough that a passage is never cut mid-thought.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 128
)

// Splitter cuts text into fixed-size character windows with overlap.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split returns contiguous windows over the text. The last window may be
// shorter; empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

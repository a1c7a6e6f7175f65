package chunker

import (
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
)

// ChunkSet is the output of ingestion: parallel chunk/id sequences ready for
// the index manager.
type ChunkSet struct {
	Chunks []string
	Ids    []uuid.UUID
}

// Ingester turns an uploaded document into retrievable chunks: text
// extraction via docconv, then overlapping character splitting, then one
// fresh uuid per chunk.
type Ingester struct {
	splitter *Splitter
}

func NewIngester(chunkSize, overlap int) *Ingester {
	return &Ingester{
		splitter: NewSplitter(chunkSize, overlap),
	}
}

// ProduceChunks extracts the text of the file at path and splits it.
// Plain text and markdown bypass docconv; everything else (pdf, docx, ...)
// goes through it.
func (i *Ingester) ProduceChunks(path string) (*ChunkSet, error) {
	text, err := i.extractText(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("document contains no extractable text")
	}

	chunks := i.splitter.Split(text)
	ids := make([]uuid.UUID, len(chunks))
	for j := range ids {
		ids[j] = uuid.New()
	}

	return &ChunkSet{Chunks: chunks, Ids: ids}, nil
}

func (i *Ingester) extractText(path string) (string, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

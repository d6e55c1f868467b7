package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/chunking"
	"coursegen/internal/models"
	"coursegen/internal/providers"
	"coursegen/internal/store"
)

const maxBinaryCheckBytes = 512

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Smart quotes and other Windows-1252 leftovers that clutter chunk text.
var charReplacementMap = map[string]string{
	"‘": "'", "’": "'", "“": "\"", "”": "\"",
	"–": "-", "—": "--", "…": "...", " ": " ",
	"": "'", "": "'", "": "\"", "": "\"",
}

// IngestService turns local files into stored documents with summarized,
// embeddable chunks. Documents ingested here become available as planning
// context for course generation.
type IngestService struct {
	docs      store.DocumentStore
	text      providers.TextProvider
	jobClient store.JobClient
	maxTokens int
	overlap   int
}

// NewIngestService builds an ingester. text may be unconfigured (summaries
// fall back to lead sentences); jobClient may be nil (embedding is skipped).
func NewIngestService(docs store.DocumentStore, text providers.TextProvider, jobClient store.JobClient, maxTokens, overlap int) *IngestService {
	return &IngestService{
		docs:      docs,
		text:      text,
		jobClient: jobClient,
		maxTokens: maxTokens,
		overlap:   overlap,
	}
}

// SetJobClient connects the queue after construction; the API server
// initializes its asynq client later than the ingester.
func (s *IngestService) SetJobClient(jc store.JobClient) { s.jobClient = jc }

// IngestFile reads, cleans, chunks and stores one document. Returns the
// stored document and its chunk count.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*models.Document, int, error) {
	binary, err := isLikelyBinary(path)
	if err != nil {
		return nil, 0, fmt.Errorf("inspecting %s: %w", path, err)
	}
	if binary {
		return nil, 0, fmt.Errorf("%s looks like a binary file", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := cleanFileContent(raw, path)
	if err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, 0, fmt.Errorf("%s is empty after cleaning", path)
	}

	title := titleFor(text, path)
	summary := s.summarize(ctx, text)
	doc := &models.Document{Title: title, Summary: &summary}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, 0, err
	}

	pieces := chunking.Split(text, s.maxTokens, s.overlap)
	chunks := make([]*models.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		lead := leadSummary(piece, 240)
		chunks = append(chunks, &models.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       piece,
			Summary:    &lead,
		})
	}
	if err := s.docs.CreateChunks(ctx, chunks); err != nil {
		return doc, 0, err
	}

	if s.jobClient != nil {
		if err := s.jobClient.EnqueueDocumentEmbedding(ctx, doc.ID); err != nil {
			log.Warnf("Document %d stored but embedding not enqueued: %v", doc.ID, err)
		}
	}

	log.WithFields(log.Fields{"document_id": doc.ID, "chunks": len(chunks)}).
		Infof("Ingested %s", path)
	return doc, len(chunks), nil
}

// DiscoverMarkdownFiles recursively finds .md files under rootDir.
func DiscoverMarkdownFiles(rootDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// summarize asks the text provider for a document summary, falling back to
// the leading sentences when no provider is configured or the call fails.
func (s *IngestService) summarize(ctx context.Context, text string) string {
	if s.text != nil && s.text.Configured() {
		excerpt := text
		if len(excerpt) > 6000 {
			excerpt = excerpt[:6000]
		}
		prompt := "Summarize the following document in 2-3 sentences, focusing on what a course built from it would teach:\n\n" + excerpt
		if summary, err := s.text.Generate(ctx, prompt); err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		} else if err != nil {
			log.Warnf("Summary generation failed, using lead sentences: %v", err)
		}
	}
	return leadSummary(text, 400)
}

// leadSummary takes the first two sentences, capped at maxLen bytes.
func leadSummary(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	sentences := strings.SplitAfter(text, ".")

	var summary strings.Builder
	for i, s := range sentences {
		summary.WriteString(s)
		if i >= 1 || summary.Len() >= maxLen {
			break
		}
	}
	out := strings.TrimSpace(summary.String())
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// titleFor uses the first markdown heading, or the file name without
// extension.
func titleFor(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isLikelyBinary(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	buffer := make([]byte, maxBinaryCheckBytes)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return bytes.Contains(buffer[:n], []byte{0}), nil
}

func cleanFileContent(raw []byte, src string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		log.Warnf("%s contains invalid UTF-8, replacing invalid sequences", src)
		raw = bytes.ToValidUTF8(raw, []byte(string(utf8.RuneError)))
	}

	str := string(raw)
	for bad, good := range charReplacementMap {
		str = strings.ReplaceAll(str, bad, good)
	}

	if !utf8.ValidString(str) {
		return "", fmt.Errorf("invalid UTF-8 after cleaning: %s", src)
	}
	return str, nil
}

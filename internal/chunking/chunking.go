// Package chunking splits reference documents into overlapping pieces
// sized for embedding and summarization.
package chunking

import (
	"strings"

	"github.com/neurosnap/sentences"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMaxTokens bounds a chunk when the caller passes no limit.
	DefaultMaxTokens = 200
	// DefaultOverlap is the token overlap carried between adjacent chunks.
	DefaultOverlap = 50
)

// estimateTokens approximates token count by words. Good enough for
// sizing chunks; the embedding model tolerates the slack.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

// Split cuts text into chunks of at most maxTokens words, preferring
// paragraph boundaries and carrying roughly overlap words of trailing
// sentences into the next chunk for context continuity.
func Split(text string, maxTokens, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}

	var pieces []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			pieces = append(pieces, chunk)
		}
		carry := sentenceOverlap(chunk, overlap)
		current.Reset()
		current.WriteString(carry)
		currentTokens = estimateTokens(carry)
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraTokens := estimateTokens(para)

		if paraTokens > maxTokens {
			// Oversized paragraph: flush what we have, then split it by words.
			flush()
			for _, piece := range splitByWords(para, maxTokens, overlap) {
				pieces = append(pieces, piece)
			}
			current.Reset()
			currentTokens = 0
			continue
		}

		if currentTokens+paraTokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		pieces = append(pieces, chunk)
	}
	return pieces
}

// splitByWords is the last-resort splitter for paragraphs that alone
// exceed the chunk budget.
func splitByWords(text string, maxTokens, overlap int) []string {
	words := strings.Fields(text)
	var out []string
	step := maxTokens - overlap
	if step <= 0 {
		step = maxTokens
	}
	for start := 0; start < len(words); start += step {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

// sentenceOverlap returns trailing sentences of text totalling roughly
// overlapTokens words, to be prepended to the next chunk.
func sentenceOverlap(text string, overlapTokens int) string {
	if overlapTokens <= 0 || text == "" {
		return ""
	}

	tokenizer := sentences.NewSentenceTokenizer(nil)
	if tokenizer == nil {
		log.Warn("Sentence tokenizer unavailable, falling back to word overlap.")
		words := strings.Fields(text)
		if overlapTokens > len(words) {
			overlapTokens = len(words)
		}
		if overlapTokens <= 0 {
			return ""
		}
		return strings.Join(words[len(words)-overlapTokens:], " ") + " "
	}

	sents := tokenizer.Tokenize(text)
	var tail []string
	accumulated := 0
	for i := len(sents) - 1; i >= 0; i-- {
		sentence := strings.TrimSpace(sents[i].Text)
		if sentence == "" {
			continue
		}
		tokens := estimateTokens(sentence)
		if accumulated+tokens <= overlapTokens {
			tail = append([]string{sentence}, tail...)
			accumulated += tokens
			continue
		}
		if len(tail) == 0 {
			tail = []string{sentence}
		}
		break
	}
	if len(tail) == 0 {
		return ""
	}
	return strings.Join(tail, " ") + " "
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ContentParams are the TF-IDF vectorizer hyperparameters.
type ContentParams struct {
	// MaxFeatures caps the vocabulary at the terms with the highest
	// corpus frequency.
	MaxFeatures int

	// MaxDF drops terms appearing in more than this fraction of
	// documents.
	MaxDF float64

	// MinDF drops terms appearing in fewer than this many documents.
	MinDF int
}

// DefaultContentParams mirrors the trained production configuration.
func DefaultContentParams() ContentParams {
	return ContentParams{MaxFeatures: 5000, MaxDF: 0.95, MinDF: 1}
}

// ContentModel is the trained TF-IDF representation of the catalog.
// Rows of the matrix are L2-normalized, so cosine similarity reduces to
// a sparse dot product.
type ContentModel struct {
	vocab     []string
	idf       []float64
	matrix    *csrMatrix
	bookIDs   []int64
	meta      []bookMeta
	trainedAt time.Time
}

// ContentStats summarizes a trained content model for run metadata.
type ContentStats struct {
	NumItems    int `json:"n_items"`
	NumFeatures int `json:"n_features"`
	NNZ         int `json:"matrix_nnz"`
}

// Stats returns the model's summary statistics.
func (m *ContentModel) Stats() ContentStats {
	return ContentStats{
		NumItems:    m.matrix.rows,
		NumFeatures: m.matrix.cols,
		NNZ:         m.matrix.nnz(),
	}
}

// TrainedAt returns the training timestamp carried in the artifact.
func (m *ContentModel) TrainedAt() time.Time {
	return m.trainedAt
}

// TrainContent fits the TF-IDF model over the catalog. The per-book
// document is genre, author, and description concatenated; terms are
// lowercased unigrams and bigrams with english stop words removed.
// Training is deterministic for a fixed book order.
func TrainContent(books []Book, params ContentParams) (*ContentModel, error) {
	if len(books) == 0 {
		return nil, errors.New("content: no books to train on")
	}
	if params.MaxFeatures <= 0 {
		params.MaxFeatures = DefaultContentParams().MaxFeatures
	}
	if params.MaxDF <= 0 || params.MaxDF > 1 {
		params.MaxDF = DefaultContentParams().MaxDF
	}
	if params.MinDF <= 0 {
		params.MinDF = 1
	}

	docs := make([][]string, len(books))
	for i, b := range books {
		docs[i] = extractTerms(b.Genre + " " + b.Author + " " + b.Description)
	}

	vocab := buildVocabulary(docs, params)
	index := make(map[string]int32, len(vocab))
	for i, term := range vocab {
		index[term] = int32(i)
	}

	// Smoothed idf: ln((1+n)/(1+df)) + 1.
	df := make([]int, len(vocab))
	for _, terms := range docs {
		seen := make(map[int32]struct{}, len(terms))
		for _, t := range terms {
			if col, ok := index[t]; ok {
				seen[col] = struct{}{}
			}
		}
		for col := range seen {
			df[col]++
		}
	}
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	// tf-idf rows, L2-normalized.
	entries := make([]map[int32]float64, len(docs))
	for i, terms := range docs {
		row := make(map[int32]float64)
		for _, t := range terms {
			if col, ok := index[t]; ok {
				row[col]++
			}
		}
		var norm float64
		for col := range row {
			row[col] *= idf[col]
			norm += row[col] * row[col]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for col := range row {
				row[col] /= norm
			}
		}
		entries[i] = row
	}

	ids := make([]int64, len(books))
	meta := make([]bookMeta, len(books))
	for i, b := range books {
		ids[i] = b.ID
		meta[i] = bookMeta{Title: b.Title, Author: b.Author, Genre: b.Genre}
	}

	return &ContentModel{
		vocab:     vocab,
		idf:       idf,
		matrix:    buildCSR(len(books), len(vocab), entries),
		bookIDs:   ids,
		meta:      meta,
		trainedAt: time.Now().UTC(),
	}, nil
}

// extractTerms tokenizes text into lowercase unigrams and bigrams.
// Tokens shorter than two characters and english stop words are
// dropped before bigram formation.
func extractTerms(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() >= 2 {
			tok := b.String()
			if !isStopWord(tok) {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// buildVocabulary applies the document-frequency bounds and the
// vocabulary cap, returning terms in alphabetical order so column
// assignment is stable.
func buildVocabulary(docs [][]string, params ContentParams) []string {
	df := make(map[string]int)
	cf := make(map[string]int)
	for _, terms := range docs {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			cf[t]++
			seen[t] = struct{}{}
		}
		for t := range seen {
			df[t]++
		}
	}

	maxDF := params.MaxDF * float64(len(docs))
	candidates := make([]string, 0, len(df))
	for t, d := range df {
		if d < params.MinDF || float64(d) > maxDF {
			continue
		}
		candidates = append(candidates, t)
	}

	if len(candidates) > params.MaxFeatures {
		sort.Slice(candidates, func(i, j int) bool {
			if cf[candidates[i]] != cf[candidates[j]] {
				return cf[candidates[i]] > cf[candidates[j]]
			}
			return candidates[i] < candidates[j]
		})
		candidates = candidates[:params.MaxFeatures]
	}

	sort.Strings(candidates)
	return candidates
}

// ContentRecommender answers similarity queries over a trained content
// model. It is immutable and safe for concurrent use.
type ContentRecommender struct {
	model     *ContentModel
	bookIndex map[int64]int32
	inverted  *csrMatrix // term -> documents
}

var (
	_ ItemSimilarity     = (*ContentRecommender)(nil)
	_ ProfileRecommender = (*ContentRecommender)(nil)
)

// NewContentRecommender prepares the lookup structures for serving.
func NewContentRecommender(model *ContentModel) *ContentRecommender {
	index := make(map[int64]int32, len(model.bookIDs))
	for i, id := range model.bookIDs {
		index[id] = int32(i)
	}
	return &ContentRecommender{
		model:     model,
		bookIndex: index,
		inverted:  model.matrix.transpose(),
	}
}

// SimilarItems returns the top-n books by cosine similarity to bookID,
// excluding the book itself. Unknown ids yield an empty result.
func (r *ContentRecommender) SimilarItems(bookID int64, n int) []Recommendation {
	if n <= 0 {
		return nil
	}
	idx, ok := r.bookIndex[bookID]
	if !ok {
		return nil
	}

	scores := r.accumulate([]int32{idx})
	delete(scores, idx)
	return r.topN(scores, n)
}

// RecommendForProfile aggregates similarity across all liked books and
// returns the top-n positive-scoring unliked books. Unknown liked ids
// are skipped; an empty or fully unknown profile yields empty output.
func (r *ContentRecommender) RecommendForProfile(likedIDs []int64, n int) []Recommendation {
	if n <= 0 || len(likedIDs) == 0 {
		return nil
	}

	rows := make([]int32, 0, len(likedIDs))
	for _, id := range likedIDs {
		if idx, ok := r.bookIndex[id]; ok {
			rows = append(rows, idx)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	scores := r.accumulate(rows)
	for _, idx := range rows {
		delete(scores, idx)
	}
	return r.topN(scores, n)
}

// accumulate sums similarity contributions of the given rows against
// every document via the inverted term index. Rows are L2-normalized,
// so the sums are cosine similarities.
func (r *ContentRecommender) accumulate(rows []int32) map[int32]float64 {
	scores := make(map[int32]float64)
	for _, idx := range rows {
		terms, weights := r.model.matrix.row(int(idx))
		for k, term := range terms {
			w := weights[k]
			docs, termWeights := r.inverted.row(int(term))
			for d, doc := range docs {
				scores[doc] += w * termWeights[d]
			}
		}
	}
	return scores
}

// topN ranks positive scores descending with index order breaking ties.
func (r *ContentRecommender) topN(scores map[int32]float64, n int) []Recommendation {
	ranked := make([]scoredIdx, 0, len(scores))
	for idx, score := range scores {
		if score > 0 {
			ranked = append(ranked, scoredIdx{idx: idx, score: score})
		}
	}
	sortScoredDesc(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	recs := make([]Recommendation, len(ranked))
	for i, s := range ranked {
		recs[i] = r.recommendation(s.idx, s.score)
	}
	return recs
}

func (r *ContentRecommender) recommendation(idx int32, score float64) Recommendation {
	m := r.model.meta[idx]
	return Recommendation{
		BookID: r.model.bookIDs[idx],
		Title:  m.Title,
		Author: m.Author,
		Genre:  m.Genre,
		Score:  score,
		Reason: ReasonContentBased,
	}
}

// scoredIdx pairs a matrix row with its score during ranking.
type scoredIdx struct {
	idx   int32
	score float64
}

// sortScoredDesc orders by score descending, then by row index so a
// fixed model always ranks ties the same way.
func sortScoredDesc(s []scoredIdx) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].idx < s[j].idx
	})
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"
)

// CollabParams are the ALS factorization hyperparameters.
//
// The optimization follows "Collaborative Filtering for Implicit
// Feedback Datasets" (Hu, Koren, Volinsky, 2008), minimizing
//
//	sum_{u,i} c_ui * (p_ui - x_u'y_i)^2 + lambda * (||x_u||^2 + ||y_i||^2)
//
// with p_ui = 1 for observed pairs and confidence c_ui = 1 + alpha*w_ui
// built from summed interaction weights.
type CollabParams struct {
	Factors        int
	Iterations     int
	Regularization float64

	// Alpha scales interaction weight into confidence.
	Alpha float64

	// Workers bounds solver parallelism; <= 0 means runtime.NumCPU().
	Workers int
}

// DefaultCollabParams mirrors the trained production configuration.
func DefaultCollabParams() CollabParams {
	return CollabParams{
		Factors:        64,
		Iterations:     30,
		Regularization: 0.1,
		Alpha:          1.0,
		Workers:        0,
	}
}

// CollabModel is the trained latent factor model. Factor matrices are
// stored row-major as flat slices; row u of the user matrix is
// userFactors[u*factors : (u+1)*factors].
type CollabModel struct {
	factors     int
	userIDs     []int64
	itemIDs     []int64
	userFactors []float64
	itemFactors []float64

	// likedPtr/likedIdx is the structure of the user-item matrix,
	// kept for filter-liked semantics at serving time.
	likedPtr []int32
	likedIdx []int32

	meta      []bookMeta
	trainedAt time.Time
}

// CollabStats summarizes a trained collaborative model for run
// metadata.
type CollabStats struct {
	NumUsers int `json:"n_users"`
	NumItems int `json:"n_items"`
	NNZ      int `json:"matrix_nnz"`
	Factors  int `json:"factors"`
}

// Stats returns the model's summary statistics.
func (m *CollabModel) Stats() CollabStats {
	return CollabStats{
		NumUsers: len(m.userIDs),
		NumItems: len(m.itemIDs),
		NNZ:      len(m.likedIdx),
		Factors:  m.factors,
	}
}

// TrainedAt returns the training timestamp carried in the artifact.
func (m *CollabModel) TrainedAt() time.Time {
	return m.trainedAt
}

// TrainCollab builds the weighted user-item matrix and factorizes it
// with alternating least squares. Index maps are rebuilt from sorted
// unique ids on every run, so a given snapshot always trains to the
// same layout. Multiple interactions on the same (user, book) pair sum
// their weights. The books slice only supplies display metadata.
func TrainCollab(ctx context.Context, interactions []Interaction, books []Book, params CollabParams) (*CollabModel, error) {
	if len(interactions) == 0 {
		return nil, errors.New("collab: no interactions to train on")
	}
	params = params.withDefaults()

	userIDs := sortedUniqueUsers(interactions)
	itemIDs := sortedUniqueItems(interactions)
	userIndex := indexOf(userIDs)
	itemIndex := indexOf(itemIDs)

	// Aggregated weight per (user, item) pair.
	entries := make([]map[int32]float64, len(userIDs))
	for i := range entries {
		entries[i] = make(map[int32]float64)
	}
	for _, ia := range interactions {
		u := userIndex[ia.UserID]
		entries[u][itemIndex[ia.BookID]] += ia.Weight()
	}
	weights := buildCSR(len(userIDs), len(itemIDs), entries)

	// Confidence matrices for both orientations.
	userConf := scaleConfidence(weights, params.Alpha)
	itemConf := userConf.transpose()

	f := params.Factors
	userFactors := seededFactors(len(userIDs), f, 17)
	itemFactors := seededFactors(len(itemIDs), f, 43)

	for iter := 0; iter < params.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collab: training canceled at iteration %d: %w", iter, err)
		}
		solveFactors(userFactors, itemFactors, userConf, f, params.Regularization, params.Workers)
		solveFactors(itemFactors, userFactors, itemConf, f, params.Regularization, params.Workers)
	}

	meta := make([]bookMeta, len(itemIDs))
	byID := make(map[int64]bookMeta, len(books))
	for _, b := range books {
		byID[b.ID] = bookMeta{Title: b.Title, Author: b.Author, Genre: b.Genre}
	}
	for i, id := range itemIDs {
		meta[i] = byID[id]
	}

	return &CollabModel{
		factors:     f,
		userIDs:     userIDs,
		itemIDs:     itemIDs,
		userFactors: userFactors,
		itemFactors: itemFactors,
		likedPtr:    weights.rowPtr,
		likedIdx:    weights.colIdx,
		meta:        meta,
		trainedAt:   time.Now().UTC(),
	}, nil
}

func (p CollabParams) withDefaults() CollabParams {
	d := DefaultCollabParams()
	if p.Factors <= 0 {
		p.Factors = d.Factors
	}
	if p.Iterations <= 0 {
		p.Iterations = d.Iterations
	}
	if p.Regularization <= 0 {
		p.Regularization = d.Regularization
	}
	if p.Alpha <= 0 {
		p.Alpha = d.Alpha
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	return p
}

func sortedUniqueUsers(interactions []Interaction) []int64 {
	seen := make(map[int64]struct{})
	for _, ia := range interactions {
		seen[ia.UserID] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedUniqueItems(interactions []Interaction) []int64 {
	seen := make(map[int64]struct{})
	for _, ia := range interactions {
		seen[ia.BookID] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func indexOf(ids []int64) map[int64]int32 {
	index := make(map[int64]int32, len(ids))
	for i, id := range ids {
		index[id] = int32(i)
	}
	return index
}

// scaleConfidence maps aggregated weights w to confidences 1 + alpha*w,
// preserving the sparsity structure.
func scaleConfidence(weights *csrMatrix, alpha float64) *csrMatrix {
	vals := make([]float64, len(weights.vals))
	for i, w := range weights.vals {
		vals[i] = 1 + alpha*w
	}
	return &csrMatrix{
		rows:   weights.rows,
		cols:   weights.cols,
		rowPtr: weights.rowPtr,
		colIdx: weights.colIdx,
		vals:   vals,
	}
}

// seededFactors initializes a flat factor matrix with small
// deterministic values so repeated runs over the same snapshot
// converge identically.
func seededFactors(rows, f int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	factors := make([]float64, rows*f)
	for i := range factors {
		factors[i] = 0.1 * (rng.Float64() - 0.5)
	}
	return factors
}

// solveFactors recomputes every row of target, holding fixed constant.
// conf holds one confidence row per target row. The Gram matrix of the
// fixed side is computed once and shared; rows are solved in parallel
// chunks with one Cholesky solve each.
func solveFactors(target, fixed []float64, conf *csrMatrix, f int, lambda float64, workers int) {
	gram := gramMatrix(fixed, f)

	rows := conf.rows
	chunk := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > rows {
			end = rows
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			a := make([]float64, f*f)
			b := make([]float64, f)
			for row := start; row < end; row++ {
				solveRow(target[row*f:(row+1)*f], fixed, conf, row, gram, a, b, lambda)
			}
		}(start, end)
	}
	wg.Wait()
}

// gramMatrix computes the f x f matrix fixed' * fixed as a flat slice.
func gramMatrix(fixed []float64, f int) []float64 {
	gram := make([]float64, f*f)
	rows := len(fixed) / f
	for r := 0; r < rows; r++ {
		vec := fixed[r*f : (r+1)*f]
		for i := 0; i < f; i++ {
			vi := vec[i]
			if vi == 0 {
				continue
			}
			for j := i; j < f; j++ {
				gram[i*f+j] += vi * vec[j]
			}
		}
	}
	for i := 0; i < f; i++ {
		for j := 0; j < i; j++ {
			gram[i*f+j] = gram[j*f+i]
		}
	}
	return gram
}

// solveRow solves (Gram + (C-I) terms + lambda*I) x = b for one row.
// a and b are caller-provided scratch buffers of size f*f and f.
func solveRow(out, fixed []float64, conf *csrMatrix, row int, gram, a, b []float64, lambda float64) {
	f := len(out)
	copy(a, gram)
	for i := 0; i < f; i++ {
		a[i*f+i] += lambda
		b[i] = 0
	}

	cols, confs := conf.row(row)
	for k, col := range cols {
		c := confs[k]
		vec := fixed[int(col)*f : (int(col)+1)*f]
		cm1 := c - 1
		for i := 0; i < f; i++ {
			vi := vec[i]
			b[i] += c * vi
			if vi == 0 {
				continue
			}
			for j := i; j < f; j++ {
				a[i*f+j] += cm1 * vi * vec[j]
			}
		}
	}
	for i := 0; i < f; i++ {
		for j := 0; j < i; j++ {
			a[i*f+j] = a[j*f+i]
		}
	}

	choleskySolve(a, b, out, f)
}

// choleskySolve solves A*x = b for symmetric positive definite A,
// decomposing in place. Near-singular pivots are floored to keep the
// solve finite.
func choleskySolve(a, b, x []float64, n int) {
	// Decompose: lower triangle of a becomes L.
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i*n+j]
			for k := 0; k < j; k++ {
				sum -= a[i*n+k] * a[j*n+k]
			}
			if i == j {
				if sum <= 0 {
					sum = 1e-10
				}
				a[i*n+i] = math.Sqrt(sum)
			} else {
				a[i*n+j] = sum / a[j*n+j]
			}
		}
	}

	// Forward substitution: L*z = b, reusing x for z.
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= a[i*n+k] * x[k]
		}
		x[i] = sum / a[i*n+i]
	}

	// Back substitution: L'*x = z.
	for i := n - 1; i >= 0; i-- {
		sum := x[i]
		for k := i + 1; k < n; k++ {
			sum -= a[k*n+i] * x[k]
		}
		x[i] = sum / a[i*n+i]
	}
}

// CollabRecommender answers user and item queries over a trained
// factor model. It is immutable and safe for concurrent use.
type CollabRecommender struct {
	model     *CollabModel
	userIndex map[int64]int32
	itemIndex map[int64]int32
}

var (
	_ UserRecommender = (*CollabRecommender)(nil)
	_ ItemSimilarity  = (*CollabRecommender)(nil)
)

// NewCollabRecommender validates the model's shape and prepares the id
// lookups. A model with inconsistent dimensions is rejected here so
// serving never indexes out of range.
func NewCollabRecommender(model *CollabModel) (*CollabRecommender, error) {
	f := model.factors
	if f <= 0 {
		return nil, fmt.Errorf("collab: invalid factor count %d", f)
	}
	if len(model.userFactors) != len(model.userIDs)*f {
		return nil, fmt.Errorf("collab: user factors length %d, want %d",
			len(model.userFactors), len(model.userIDs)*f)
	}
	if len(model.itemFactors) != len(model.itemIDs)*f {
		return nil, fmt.Errorf("collab: item factors length %d, want %d",
			len(model.itemFactors), len(model.itemIDs)*f)
	}
	if len(model.meta) != len(model.itemIDs) {
		return nil, fmt.Errorf("collab: metadata length %d, want %d",
			len(model.meta), len(model.itemIDs))
	}
	if len(model.likedPtr) != len(model.userIDs)+1 {
		return nil, fmt.Errorf("collab: liked index length %d, want %d",
			len(model.likedPtr), len(model.userIDs)+1)
	}

	return &CollabRecommender{
		model:     model,
		userIndex: indexOf(model.userIDs),
		itemIndex: indexOf(model.itemIDs),
	}, nil
}

// RecommendForUser scores every item for the user and returns the
// top-n, excluding items the user has already interacted with. Users
// absent from the trained index map yield an empty result.
func (r *CollabRecommender) RecommendForUser(userID int64, n int) []Recommendation {
	if n <= 0 {
		return nil
	}
	u, ok := r.userIndex[userID]
	if !ok {
		return nil
	}

	m := r.model
	f := m.factors
	userVec := m.userFactors[int(u)*f : (int(u)+1)*f]

	liked := make(map[int32]struct{})
	for _, idx := range m.likedIdx[m.likedPtr[u]:m.likedPtr[u+1]] {
		liked[idx] = struct{}{}
	}

	ranked := make([]scoredIdx, 0, len(m.itemIDs)-len(liked))
	for i := range m.itemIDs {
		if _, skip := liked[int32(i)]; skip {
			continue
		}
		itemVec := m.itemFactors[i*f : (i+1)*f]
		var score float64
		for k := 0; k < f; k++ {
			score += userVec[k] * itemVec[k]
		}
		ranked = append(ranked, scoredIdx{idx: int32(i), score: score})
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

// SimilarItems returns the top-n items by cosine similarity of latent
// factors, excluding the query item. Unknown ids yield an empty
// result.
func (r *CollabRecommender) SimilarItems(bookID int64, n int) []Recommendation {
	if n <= 0 {
		return nil
	}
	src, ok := r.itemIndex[bookID]
	if !ok {
		return nil
	}

	m := r.model
	f := m.factors
	srcVec := m.itemFactors[int(src)*f : (int(src)+1)*f]
	srcNorm := vectorNorm(srcVec)
	if srcNorm == 0 {
		return nil
	}

	ranked := make([]scoredIdx, 0, len(m.itemIDs)-1)
	for i := range m.itemIDs {
		if int32(i) == src {
			continue
		}
		vec := m.itemFactors[i*f : (i+1)*f]
		norm := vectorNorm(vec)
		if norm == 0 {
			continue
		}
		var dot float64
		for k := 0; k < f; k++ {
			dot += srcVec[k] * vec[k]
		}
		if sim := dot / (srcNorm * norm); sim > 0 {
			ranked = append(ranked, scoredIdx{idx: int32(i), score: sim})
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

func (r *CollabRecommender) recommendation(idx int32, score float64) Recommendation {
	m := r.model.meta[idx]
	return Recommendation{
		BookID: r.model.itemIDs[idx],
		Title:  m.Title,
		Author: m.Author,
		Genre:  m.Genre,
		Score:  score,
		Reason: ReasonCollaborative,
	}
}

func vectorNorm(vec []float64) float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	return math.Sqrt(sum)
}

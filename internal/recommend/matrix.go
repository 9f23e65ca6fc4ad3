// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"fmt"
	"sort"
)

// csrMatrix is a compressed sparse row matrix. Row i's entries live in
// colIdx[rowPtr[i]:rowPtr[i+1]] and vals[rowPtr[i]:rowPtr[i+1]], with
// column indices strictly increasing within a row.
type csrMatrix struct {
	rows   int
	cols   int
	rowPtr []int32
	colIdx []int32
	vals   []float64
}

// newCSRMatrix wraps pre-built CSR arrays after validating their shape.
// Decoded artifacts pass through here so a corrupt file cannot produce
// out-of-range indexing later.
func newCSRMatrix(rows, cols int, rowPtr, colIdx []int32, vals []float64) (*csrMatrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("csr: negative dimensions %dx%d", rows, cols)
	}
	if len(rowPtr) != rows+1 {
		return nil, fmt.Errorf("csr: rowPtr length %d, want %d", len(rowPtr), rows+1)
	}
	if len(colIdx) != len(vals) {
		return nil, fmt.Errorf("csr: colIdx length %d != vals length %d", len(colIdx), len(vals))
	}
	nnz := int32(len(colIdx))
	if rowPtr[0] != 0 || rowPtr[rows] != nnz {
		return nil, fmt.Errorf("csr: rowPtr bounds [%d,%d], want [0,%d]", rowPtr[0], rowPtr[rows], nnz)
	}
	for i := 0; i < rows; i++ {
		if rowPtr[i] > rowPtr[i+1] {
			return nil, fmt.Errorf("csr: rowPtr not monotonic at row %d", i)
		}
	}
	for _, c := range colIdx {
		if c < 0 || int(c) >= cols {
			return nil, fmt.Errorf("csr: column index %d out of range [0,%d)", c, cols)
		}
	}
	return &csrMatrix{rows: rows, cols: cols, rowPtr: rowPtr, colIdx: colIdx, vals: vals}, nil
}

// buildCSR assembles a matrix from per-row sparse maps, summing nothing
// (the maps already aggregate duplicates). Columns are sorted per row.
func buildCSR(rows, cols int, entries []map[int32]float64) *csrMatrix {
	rowPtr := make([]int32, rows+1)
	nnz := 0
	for i := 0; i < rows; i++ {
		nnz += len(entries[i])
		rowPtr[i+1] = int32(nnz)
	}

	colIdx := make([]int32, 0, nnz)
	vals := make([]float64, 0, nnz)
	scratch := make([]int32, 0, 64)
	for i := 0; i < rows; i++ {
		scratch = scratch[:0]
		for c := range entries[i] {
			scratch = append(scratch, c)
		}
		sort.Slice(scratch, func(a, b int) bool { return scratch[a] < scratch[b] })
		for _, c := range scratch {
			colIdx = append(colIdx, c)
			vals = append(vals, entries[i][c])
		}
	}

	return &csrMatrix{rows: rows, cols: cols, rowPtr: rowPtr, colIdx: colIdx, vals: vals}
}

// nnz returns the number of stored entries.
func (m *csrMatrix) nnz() int {
	return len(m.vals)
}

// row returns the column indices and values of row i as shared slices.
func (m *csrMatrix) row(i int) ([]int32, []float64) {
	start, end := m.rowPtr[i], m.rowPtr[i+1]
	return m.colIdx[start:end], m.vals[start:end]
}

// transpose returns the CSC view of m as a new CSR matrix. Content
// similarity uses it as an inverted term index.
func (m *csrMatrix) transpose() *csrMatrix {
	counts := make([]int32, m.cols+1)
	for _, c := range m.colIdx {
		counts[c+1]++
	}
	for i := 0; i < m.cols; i++ {
		counts[i+1] += counts[i]
	}

	rowPtr := counts
	colIdx := make([]int32, len(m.colIdx))
	vals := make([]float64, len(m.vals))
	next := make([]int32, m.cols)
	copy(next, rowPtr[:m.cols])
	for i := 0; i < m.rows; i++ {
		cols, rowVals := m.row(i)
		for k, c := range cols {
			pos := next[c]
			colIdx[pos] = int32(i)
			vals[pos] = rowVals[k]
			next[c]++
		}
	}

	return &csrMatrix{rows: m.cols, cols: m.rows, rowPtr: rowPtr, colIdx: colIdx, vals: vals}
}

// rowDot computes the dot product of rows i and j, relying on sorted
// column indices.
func (m *csrMatrix) rowDot(i, j int) float64 {
	ci, vi := m.row(i)
	cj, vj := m.row(j)
	var sum float64
	a, b := 0, 0
	for a < len(ci) && b < len(cj) {
		switch {
		case ci[a] == cj[b]:
			sum += vi[a] * vj[b]
			a++
			b++
		case ci[a] < cj[b]:
			a++
		default:
			b++
		}
	}
	return sum
}

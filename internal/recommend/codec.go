// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"
)

// Artifact names used as store keys and metadata identifiers.
const (
	ArtifactContent    = "content"
	ArtifactCollab     = "collab"
	ArtifactPopularity = "popularity"
)

// ErrCorruptArtifact reports an artifact that failed structural or
// checksum validation. Loaders treat it as "model unavailable".
var ErrCorruptArtifact = errors.New("recommend: corrupt artifact")

// Artifacts are framed in a versioned container so any reader can
// validate them without deserializing the payload:
//
//	magic      "BRMF"
//	version    uint16 little-endian
//	kind       1 byte (1=content, 2=collab, 3=popularity)
//	flags      1 byte (bit 0: payload is gzip-compressed)
//	metaLen    uvarint, then metaLen bytes of JSON metadata
//	checksum   32 bytes, sha256 of the uncompressed payload
//	payloadLen uvarint, then payloadLen bytes of payload
//
// Payloads hold flat arrays with explicit shapes: uvarints for counts
// and indices, varints for external ids, 8-byte little-endian IEEE 754
// for floats, uvarint-length-prefixed UTF-8 for strings.
const (
	artifactMagic   = "BRMF"
	artifactVersion = 1

	kindContent    byte = 1
	kindCollab     byte = 2
	kindPopularity byte = 3

	flagGzip byte = 1 << 0
)

// artifactMeta is the JSON header co-located with every payload.
type artifactMeta struct {
	Name      string    `json:"name"`
	TrainedAt time.Time `json:"trained_at"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
}

// EncodeContent serializes a trained content model.
func EncodeContent(m *ContentModel) ([]byte, error) {
	w := &payloadWriter{}
	w.strings(m.vocab)
	w.floats(m.idf)
	w.csr(m.matrix)
	w.int64s(m.bookIDs)
	w.metas(m.meta)

	meta := artifactMeta{
		Name:      ArtifactContent,
		TrainedAt: m.trainedAt,
		Rows:      m.matrix.rows,
		Cols:      m.matrix.cols,
	}
	return sealArtifact(kindContent, meta, w.buf)
}

// DecodeContent deserializes and validates a content model artifact.
func DecodeContent(data []byte) (*ContentModel, error) {
	meta, payload, err := openArtifact(data, kindContent)
	if err != nil {
		return nil, err
	}

	r := newPayloadReader(payload)
	vocab := r.strings()
	idf := r.floats()
	matrix := r.csr()
	bookIDs := r.int64s()
	bookMetas := r.metas()
	if err := r.finish(); err != nil {
		return nil, err
	}

	if len(idf) != len(vocab) || matrix.cols != len(vocab) {
		return nil, fmt.Errorf("%w: content vocabulary size mismatch", ErrCorruptArtifact)
	}
	if matrix.rows != len(bookIDs) || len(bookMetas) != len(bookIDs) {
		return nil, fmt.Errorf("%w: content row count mismatch", ErrCorruptArtifact)
	}

	return &ContentModel{
		vocab:     vocab,
		idf:       idf,
		matrix:    matrix,
		bookIDs:   bookIDs,
		meta:      bookMetas,
		trainedAt: meta.TrainedAt,
	}, nil
}

// EncodeCollab serializes a trained collaborative model.
func EncodeCollab(m *CollabModel) ([]byte, error) {
	w := &payloadWriter{}
	w.uvarint(uint64(m.factors))
	w.int64s(m.userIDs)
	w.int64s(m.itemIDs)
	w.floats(m.userFactors)
	w.floats(m.itemFactors)
	w.int32s(m.likedPtr)
	w.int32s(m.likedIdx)
	w.metas(m.meta)

	meta := artifactMeta{
		Name:      ArtifactCollab,
		TrainedAt: m.trainedAt,
		Rows:      len(m.userIDs),
		Cols:      len(m.itemIDs),
	}
	return sealArtifact(kindCollab, meta, w.buf)
}

// DecodeCollab deserializes and validates a collaborative model
// artifact.
func DecodeCollab(data []byte) (*CollabModel, error) {
	meta, payload, err := openArtifact(data, kindCollab)
	if err != nil {
		return nil, err
	}

	r := newPayloadReader(payload)
	factors := r.uvarint()
	userIDs := r.int64s()
	itemIDs := r.int64s()
	userFactors := r.floats()
	itemFactors := r.floats()
	likedPtr := r.int32s()
	likedIdx := r.int32s()
	bookMetas := r.metas()
	if err := r.finish(); err != nil {
		return nil, err
	}

	f := int(factors)
	if f <= 0 || f > 1<<16 {
		return nil, fmt.Errorf("%w: factor count %d out of range", ErrCorruptArtifact, f)
	}
	if len(userFactors) != len(userIDs)*f || len(itemFactors) != len(itemIDs)*f {
		return nil, fmt.Errorf("%w: factor matrix shape mismatch", ErrCorruptArtifact)
	}
	if len(bookMetas) != len(itemIDs) {
		return nil, fmt.Errorf("%w: collab metadata length mismatch", ErrCorruptArtifact)
	}
	if err := validateLikedIndex(likedPtr, likedIdx, len(userIDs), len(itemIDs)); err != nil {
		return nil, err
	}

	return &CollabModel{
		factors:     f,
		userIDs:     userIDs,
		itemIDs:     itemIDs,
		userFactors: userFactors,
		itemFactors: itemFactors,
		likedPtr:    likedPtr,
		likedIdx:    likedIdx,
		meta:        bookMetas,
		trainedAt:   meta.TrainedAt,
	}, nil
}

// EncodePopularity serializes a popularity table.
func EncodePopularity(m *PopularityModel) ([]byte, error) {
	w := &payloadWriter{}
	w.uvarint(uint64(len(m.entries)))
	for _, e := range m.entries {
		w.varint(e.BookID)
		w.string(e.Title)
		w.string(e.Author)
		w.string(e.Genre)
		w.float(e.Score)
	}

	meta := artifactMeta{
		Name:      ArtifactPopularity,
		TrainedAt: m.trainedAt,
		Rows:      len(m.entries),
	}
	return sealArtifact(kindPopularity, meta, w.buf)
}

// DecodePopularity deserializes a popularity table artifact.
func DecodePopularity(data []byte) (*PopularityModel, error) {
	meta, payload, err := openArtifact(data, kindPopularity)
	if err != nil {
		return nil, err
	}

	r := newPayloadReader(payload)
	count := r.count(8)
	entries := make([]PopularEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, PopularEntry{
			BookID: r.varint(),
			Title:  r.string(),
			Author: r.string(),
			Genre:  r.string(),
			Score:  r.float(),
		})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}

	return &PopularityModel{
		entries:   entries,
		trainedAt: meta.TrainedAt,
	}, nil
}

func validateLikedIndex(likedPtr, likedIdx []int32, users, items int) error {
	if len(likedPtr) != users+1 {
		return fmt.Errorf("%w: liked index has %d rows, want %d", ErrCorruptArtifact, len(likedPtr), users+1)
	}
	if likedPtr[0] != 0 || int(likedPtr[users]) != len(likedIdx) {
		return fmt.Errorf("%w: liked index bounds", ErrCorruptArtifact)
	}
	for i := 0; i < users; i++ {
		if likedPtr[i] > likedPtr[i+1] {
			return fmt.Errorf("%w: liked index not monotonic at row %d", ErrCorruptArtifact, i)
		}
	}
	for _, idx := range likedIdx {
		if idx < 0 || int(idx) >= items {
			return fmt.Errorf("%w: liked index column %d out of range", ErrCorruptArtifact, idx)
		}
	}
	return nil
}

// sealArtifact frames a payload: gzip, checksum over the raw bytes,
// JSON meta header.
func sealArtifact(kind byte, meta artifactMeta, payload []byte) ([]byte, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode artifact meta: %w", err)
	}
	sum := sha256.Sum256(payload)

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}

	out := make([]byte, 0, len(artifactMagic)+4+len(metaJSON)+sha256.Size+compressed.Len()+2*binary.MaxVarintLen64)
	out = append(out, artifactMagic...)
	out = binary.LittleEndian.AppendUint16(out, artifactVersion)
	out = append(out, kind, flagGzip)
	out = binary.AppendUvarint(out, uint64(len(metaJSON)))
	out = append(out, metaJSON...)
	out = append(out, sum[:]...)
	out = binary.AppendUvarint(out, uint64(compressed.Len()))
	out = append(out, compressed.Bytes()...)
	return out, nil
}

// openArtifact validates the container frame and returns the metadata
// and uncompressed payload.
func openArtifact(data []byte, wantKind byte) (artifactMeta, []byte, error) {
	var meta artifactMeta
	r := newPayloadReader(data)

	magic := r.bytes(len(artifactMagic))
	version := r.uint16()
	kind := r.byte()
	flags := r.byte()
	metaJSON := r.bytes(int(r.count(1)))
	sum := r.bytes(sha256.Size)
	payload := r.bytes(int(r.count(1)))
	if err := r.finish(); err != nil {
		return meta, nil, err
	}

	if string(magic) != artifactMagic {
		return meta, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptArtifact, magic)
	}
	if version != artifactVersion {
		return meta, nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptArtifact, version)
	}
	if kind != wantKind {
		return meta, nil, fmt.Errorf("%w: kind %d, want %d", ErrCorruptArtifact, kind, wantKind)
	}
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return meta, nil, fmt.Errorf("%w: metadata: %v", ErrCorruptArtifact, err)
	}

	if flags&flagGzip != 0 {
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return meta, nil, fmt.Errorf("%w: gzip header: %v", ErrCorruptArtifact, err)
		}
		payload, err = io.ReadAll(gz)
		if err != nil {
			return meta, nil, fmt.Errorf("%w: decompress: %v", ErrCorruptArtifact, err)
		}
		if err := gz.Close(); err != nil {
			return meta, nil, fmt.Errorf("%w: decompress: %v", ErrCorruptArtifact, err)
		}
	}

	if sha256.Sum256(payload) != [sha256.Size]byte(sum) {
		return meta, nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)
	}
	return meta, payload, nil
}

// payloadWriter appends primitives to a growing buffer.
type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *payloadWriter) varint(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

func (w *payloadWriter) float(f float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(f))
}

func (w *payloadWriter) string(s string) {
	w.uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *payloadWriter) strings(vals []string) {
	w.uvarint(uint64(len(vals)))
	for _, s := range vals {
		w.string(s)
	}
}

func (w *payloadWriter) int64s(vals []int64) {
	w.uvarint(uint64(len(vals)))
	for _, v := range vals {
		w.varint(v)
	}
}

func (w *payloadWriter) int32s(vals []int32) {
	w.uvarint(uint64(len(vals)))
	for _, v := range vals {
		w.uvarint(uint64(v))
	}
}

func (w *payloadWriter) floats(vals []float64) {
	w.uvarint(uint64(len(vals)))
	for _, v := range vals {
		w.float(v)
	}
}

func (w *payloadWriter) metas(vals []bookMeta) {
	w.uvarint(uint64(len(vals)))
	for _, m := range vals {
		w.string(m.Title)
		w.string(m.Author)
		w.string(m.Genre)
	}
}

func (w *payloadWriter) csr(m *csrMatrix) {
	w.uvarint(uint64(m.rows))
	w.uvarint(uint64(m.cols))
	w.int32s(m.rowPtr)
	w.int32s(m.colIdx)
	w.floats(m.vals)
}

// payloadReader consumes primitives with a sticky error, so decoders
// read a whole layout and check once at the end. Every length prefix
// is bounded by the bytes actually remaining, which keeps corrupt
// input from forcing huge allocations.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func newPayloadReader(buf []byte) *payloadReader {
	return &payloadReader{buf: buf}
}

func (r *payloadReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]any{ErrCorruptArtifact}, args...)...)
	}
}

func (r *payloadReader) finish() error {
	return r.err
}

func (r *payloadReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *payloadReader) byte() byte {
	if r.err != nil {
		return 0
	}
	if r.remaining() < 1 {
		r.fail("truncated input")
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *payloadReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.remaining() < n {
		r.fail("truncated input")
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) uint16() uint16 {
	b := r.bytes(2)
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *payloadReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.fail("bad uvarint")
		return 0
	}
	r.off += n
	return v
}

func (r *payloadReader) varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf[r.off:])
	if n <= 0 {
		r.fail("bad varint")
		return 0
	}
	r.off += n
	return v
}

func (r *payloadReader) float() float64 {
	b := r.bytes(8)
	if r.err != nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// count reads an element count and rejects it when the remaining bytes
// cannot possibly hold that many elements of minBytes each.
func (r *payloadReader) count(minBytes int) int {
	v := r.uvarint()
	if r.err != nil {
		return 0
	}
	if v > uint64(r.remaining()/minBytes) {
		r.fail("element count %d exceeds input size", v)
		return 0
	}
	return int(v)
}

func (r *payloadReader) string() string {
	n := r.count(1)
	b := r.bytes(n)
	if r.err != nil {
		return ""
	}
	return string(b)
}

func (r *payloadReader) strings() []string {
	n := r.count(1)
	if r.err != nil {
		return nil
	}
	vals := make([]string, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, r.string())
	}
	return vals
}

func (r *payloadReader) int64s() []int64 {
	n := r.count(1)
	if r.err != nil {
		return nil
	}
	vals := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, r.varint())
	}
	return vals
}

func (r *payloadReader) int32s() []int32 {
	n := r.count(1)
	if r.err != nil {
		return nil
	}
	vals := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		v := r.uvarint()
		if v > math.MaxInt32 {
			r.fail("index %d overflows int32", v)
			return nil
		}
		vals = append(vals, int32(v))
	}
	return vals
}

func (r *payloadReader) floats() []float64 {
	n := r.count(8)
	if r.err != nil {
		return nil
	}
	vals := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, r.float())
	}
	return vals
}

func (r *payloadReader) metas() []bookMeta {
	n := r.count(3)
	if r.err != nil {
		return nil
	}
	vals := make([]bookMeta, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, bookMeta{
			Title:  r.string(),
			Author: r.string(),
			Genre:  r.string(),
		})
	}
	return vals
}

func (r *payloadReader) csr() *csrMatrix {
	rows := int(r.uvarint())
	cols := int(r.uvarint())
	rowPtr := r.int32s()
	colIdx := r.int32s()
	vals := r.floats()
	if r.err != nil {
		return &csrMatrix{}
	}
	m, err := newCSRMatrix(rows, cols, rowPtr, colIdx, vals)
	if err != nil {
		r.fail("%v", err)
		return &csrMatrix{}
	}
	return m
}

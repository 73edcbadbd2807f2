package vecbuild

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecbuild/blobstore"
	"github.com/hupe1980/vecbuild/codec"
	"github.com/hupe1980/vecbuild/distance"
	"github.com/hupe1980/vecbuild/index"
	"github.com/hupe1980/vecbuild/index/ivf"
	"github.com/hupe1980/vecbuild/index/pq"
	"github.com/hupe1980/vecbuild/internal/blockio"
)

// manifestVersion guards artifact compatibility.
const manifestVersion = 1

// manifest is the self-describing header of a persisted index. It records
// the codec and compression so artifacts can be opened without out-of-band
// configuration.
type manifest struct {
	Version     int    `json:"version"`
	Codec       string `json:"codec"`
	Compression string `json:"compression"`

	Name       string           `json:"name"`
	Column     string           `json:"column"`
	MetricType index.MetricType `json:"metric_type"`

	IvfParams index.IvfBuildParams `json:"ivf_params"`
	PQParams  index.PQBuildParams  `json:"pq_params"`

	Dimension   int  `json:"dimension"`
	NumVectors  int  `json:"num_vectors"`
	HasRotation bool `json:"has_rotation"`
}

func artifactKey(name, section string) string {
	return "indexes/" + name + "/" + section
}

// Save persists the index to the store under "indexes/<name>/".
func (e *Engine) Save(ctx context.Context, store blobstore.Store, idx *Index) error {
	start := time.Now()
	err := e.save(ctx, store, idx)
	e.opts.metricsCollector.RecordPersist("save", time.Since(start), err)
	e.opts.logger.LogPersist(ctx, "save", idx.name, err)
	return err
}

func (e *Engine) save(ctx context.Context, store blobstore.Store, idx *Index) error {
	ivfParams, _ := idx.params.IvfParams()
	pqParams, _ := idx.params.PQParams()

	m := manifest{
		Version:     manifestVersion,
		Codec:       e.opts.codec.Name(),
		Compression: e.opts.compression.String(),
		Name:        idx.name,
		Column:      idx.column,
		MetricType:  idx.params.MetricType,
		IvfParams:   ivfParams,
		PQParams:    pqParams,
		Dimension:   idx.dimension,
		NumVectors:  len(idx.codes),
		HasRotation: idx.quantizer.Rotation() != nil,
	}

	manifestData, err := e.opts.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := store.Put(ctx, artifactKey(idx.name, "manifest.json"), manifestData); err != nil {
		return err
	}

	sections := map[string][]byte{
		"centroids.bin": encodeMatrix(idx.coarse.Centroids()),
		"codebooks.bin": encodeCodebooks(idx.quantizer.Codebooks()),
		"codes.bin":     encodeCodes(idx.codes),
		"postings.bin":  encodePostings(idx.postings),
		"vectors.bin":   encodeMatrix(idx.vectors),
	}
	if m.HasRotation {
		sections["rotation.bin"] = encodeMatrix(idx.quantizer.Rotation())
	}

	for section, data := range sections {
		framed, err := blockio.Compress(data, e.opts.compression)
		if err != nil {
			return fmt.Errorf("compress %s: %w", section, err)
		}
		if err := store.Put(ctx, artifactKey(idx.name, section), framed); err != nil {
			return fmt.Errorf("put %s: %w", section, err)
		}
	}
	return nil
}

// LoadIndex opens a persisted index by name.
func (e *Engine) LoadIndex(ctx context.Context, store blobstore.Store, name string) (*Index, error) {
	start := time.Now()
	idx, err := e.loadIndex(ctx, store, name)
	e.opts.metricsCollector.RecordPersist("load", time.Since(start), err)
	e.opts.logger.LogPersist(ctx, "load", name, err)
	return idx, err
}

func (e *Engine) loadIndex(ctx context.Context, store blobstore.Store, name string) (*Index, error) {
	manifestData, err := readSection(ctx, store, name, "manifest.json")
	if err != nil {
		return nil, err
	}

	// The manifest itself is uncompressed JSON in any codec, so probing
	// with the default codec is safe.
	var m manifest
	if err := (codec.JSON{}).Unmarshal(manifestData, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if _, ok := codec.ByName(m.Codec); !ok {
		return nil, fmt.Errorf("unknown manifest codec %q", m.Codec)
	}
	compression, err := blockio.ParseCompression(m.Compression)
	if err != nil {
		return nil, err
	}

	section := func(sectionName string) ([]byte, error) {
		framed, err := readSection(ctx, store, name, sectionName)
		if err != nil {
			return nil, err
		}
		return blockio.Decompress(framed, compression)
	}

	centroidData, err := section("centroids.bin")
	if err != nil {
		return nil, err
	}
	centroids, err := decodeMatrix(centroidData, m.IvfParams.NumPartitions, m.Dimension)
	if err != nil {
		return nil, fmt.Errorf("centroids: %w", err)
	}
	coarse, err := ivf.NewCoarseQuantizer(centroids)
	if err != nil {
		return nil, err
	}

	codebookData, err := section("codebooks.bin")
	if err != nil {
		return nil, err
	}
	subDim := m.Dimension / m.PQParams.NumSubVectors
	codebooks, err := decodeCodebooks(codebookData, m.PQParams.NumSubVectors, m.PQParams.NumCentroids(), subDim)
	if err != nil {
		return nil, fmt.Errorf("codebooks: %w", err)
	}

	var rotation [][]float32
	if m.HasRotation {
		rotationData, err := section("rotation.bin")
		if err != nil {
			return nil, err
		}
		rotation, err = decodeMatrix(rotationData, m.Dimension, m.Dimension)
		if err != nil {
			return nil, fmt.Errorf("rotation: %w", err)
		}
	}

	quantizer, err := pq.New(m.PQParams, m.Dimension, codebooks, rotation)
	if err != nil {
		return nil, err
	}

	codeData, err := section("codes.bin")
	if err != nil {
		return nil, err
	}
	codes, err := decodeCodes(codeData, m.NumVectors, quantizer.CodeSize())
	if err != nil {
		return nil, fmt.Errorf("codes: %w", err)
	}

	postingData, err := section("postings.bin")
	if err != nil {
		return nil, err
	}
	postings, err := decodePostings(postingData, m.IvfParams.NumPartitions)
	if err != nil {
		return nil, fmt.Errorf("postings: %w", err)
	}

	vectorData, err := section("vectors.bin")
	if err != nil {
		return nil, err
	}
	vectors, err := decodeMatrix(vectorData, m.NumVectors, m.Dimension)
	if err != nil {
		return nil, fmt.Errorf("vectors: %w", err)
	}

	distFn, err := distance.Provider(m.MetricType)
	if err != nil {
		return nil, err
	}

	return &Index{
		name:      m.Name,
		column:    m.Column,
		params:    index.NewIvfPqParams(m.MetricType, m.IvfParams, m.PQParams),
		dimension: m.Dimension,
		coarse:    coarse,
		quantizer: quantizer,
		codes:     codes,
		postings:  postings,
		vectors:   vectors,
		distFn:    distFn,
		logger:    e.opts.logger,
		metrics:   e.opts.metricsCollector,
	}, nil
}

func readSection(ctx context.Context, store blobstore.Store, name, section string) ([]byte, error) {
	blob, err := store.Open(ctx, artifactKey(name, section))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", section, err)
	}
	defer func() { _ = blob.Close() }()

	return blobstore.ReadAll(blob)
}

func encodeMatrix(rows [][]float32) []byte {
	if len(rows) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(rows)*len(rows[0])*4)
	for _, row := range rows {
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

func decodeMatrix(data []byte, numRows, numCols int) ([][]float32, error) {
	if len(data) != numRows*numCols*4 {
		return nil, fmt.Errorf("expected %d bytes, got %d", numRows*numCols*4, len(data))
	}
	rows := make([][]float32, numRows)
	off := 0
	for i := range rows {
		row := make([]float32, numCols)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		rows[i] = row
	}
	return rows, nil
}

func encodeCodebooks(codebooks [][][]float32) []byte {
	var buf []byte
	for _, codebook := range codebooks {
		buf = append(buf, encodeMatrix(codebook)...)
	}
	return buf
}

func decodeCodebooks(data []byte, numSubVectors, numCentroids, subDim int) ([][][]float32, error) {
	stride := numCentroids * subDim * 4
	if len(data) != numSubVectors*stride {
		return nil, fmt.Errorf("expected %d bytes, got %d", numSubVectors*stride, len(data))
	}
	codebooks := make([][][]float32, numSubVectors)
	for m := range codebooks {
		codebook, err := decodeMatrix(data[m*stride:(m+1)*stride], numCentroids, subDim)
		if err != nil {
			return nil, err
		}
		codebooks[m] = codebook
	}
	return codebooks, nil
}

func encodeCodes(codes [][]byte) []byte {
	if len(codes) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(codes)*len(codes[0]))
	for _, code := range codes {
		buf = append(buf, code...)
	}
	return buf
}

func decodeCodes(data []byte, numVectors, codeSize int) ([][]byte, error) {
	if len(data) != numVectors*codeSize {
		return nil, fmt.Errorf("expected %d bytes, got %d", numVectors*codeSize, len(data))
	}
	codes := make([][]byte, numVectors)
	for i := range codes {
		codes[i] = data[i*codeSize : (i+1)*codeSize : (i+1)*codeSize]
	}
	return codes, nil
}

// encodePostings serializes each posting list with a length prefix so the
// roaring payloads can be sliced back apart.
func encodePostings(postings []*roaring.Bitmap) []byte {
	var buf bytes.Buffer
	for _, posting := range postings {
		data, err := posting.ToBytes()
		if err != nil {
			// ToBytes on an in-memory bitmap cannot fail.
			panic(err)
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
		buf.Write(lenBuf[:])
		buf.Write(data)
	}
	return buf.Bytes()
}

func decodePostings(data []byte, numPartitions int) ([]*roaring.Bitmap, error) {
	postings := make([]*roaring.Bitmap, numPartitions)
	off := 0
	for i := range postings {
		if off+4 > len(data) {
			return nil, fmt.Errorf("posting %d: truncated length prefix", i)
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+n > len(data) {
			return nil, fmt.Errorf("posting %d: truncated payload", i)
		}

		posting := roaring.New()
		if err := posting.UnmarshalBinary(data[off : off+n]); err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		postings[i] = posting
		off += n
	}
	if off != len(data) {
		return nil, fmt.Errorf("trailing %d bytes after postings", len(data)-off)
	}
	return postings, nil
}

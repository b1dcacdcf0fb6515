package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/fpn/internal/tensor"
)

// Metadata keys written into every checkpoint.
const (
	MetaFormat   = "format"
	MetaChecksum = "sha256"

	// FormatName is the value of the "format" metadata entry.
	FormatName = "fpn"

	// ModelPrefix prefixes every model-dictionary tensor name.
	ModelPrefix = "model."
)

// tensorEntry is one tensor ready to be written.
type tensorEntry struct {
	name  string
	dtype DType
	shape []int
	data  []byte
}

// SaveCheckpoint writes model as a checkpoint file at path.
//
// Tensors are stored as F32 under "model.<key>". metadata entries are
// copied into "__metadata__" next to the format and checksum entries.
func SaveCheckpoint(path string, model map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return WriteCheckpoint(file, model, metadata)
}

// WriteCheckpoint writes model in checkpoint format to w.
func WriteCheckpoint(w io.Writer, model map[string]*tensor.RawTensor, metadata map[string]string) error {
	entries := make([]tensorEntry, 0, len(model))
	for key, raw := range model {
		entries = append(entries, tensorEntry{
			name:  ModelPrefix + key,
			dtype: F32,
			shape: raw.Shape().Clone(),
			data:  encodeFloat32(raw.Data()),
		})
	}

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaFormat] = FormatName

	return writeSafeTensors(w, entries, meta)
}

// writeSafeTensors writes entries in alphabetical order, the SafeTensors
// convention, and records the SHA-256 of the data section in metadata.
func writeSafeTensors(w io.Writer, entries []tensorEntry, metadata map[string]string) error {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})

	header := Header{
		Metadata: make(map[string]string, len(metadata)+1),
		Tensors:  make(map[string]TensorInfo, len(entries)),
	}
	for k, v := range metadata {
		header.Metadata[k] = v
	}

	var offset int64
	hash := newChecksum()
	for _, e := range entries {
		if err := ValidateTensorName(e.name); err != nil {
			return err
		}
		size := int64(len(e.data))
		header.Tensors[e.name] = TensorInfo{
			DType:       e.dtype,
			Shape:       e.shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
		hash.Write(e.data)
	}
	header.Metadata[MetaChecksum] = hex.EncodeToString(hash.Sum(nil))

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	bw := bufio.NewWriter(w)

	// Header size (8 bytes, little-endian uint64)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		if _, err := bw.Write(e.data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", e.name, err)
		}
	}

	return bw.Flush()
}

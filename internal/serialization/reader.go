package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/born-ml/fpn/internal/tensor"
)

// Reader reads tensors from a SafeTensors file.
type Reader struct {
	file       *os.File
	header     Header
	dataOffset int64 // Offset where tensor data starts
	dataSize   int64
}

// Open opens a SafeTensors file and validates its header.
//
// Errors from opening the file are wrapped, so errors.Is(err,
// fs.ErrNotExist) reports a missing file.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(file *os.File) (*Reader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	// Header size (8 bytes, little-endian uint64)
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}

	if headerSize > MaxHeaderSize || int64(headerSize) > stat.Size()-8 { //nolint:gosec // G115: bounded by MaxHeaderSize
		return nil, fmt.Errorf("%w: header size %d, file size %d", ErrHeaderTooLarge, headerSize, stat.Size())
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	dataSize := stat.Size() - dataOffset
	if err := validateHeader(&header, dataSize); err != nil {
		return nil, err
	}

	return &Reader{
		file:       file,
		header:     header,
		dataOffset: dataOffset,
		dataSize:   dataSize,
	}, nil
}

// Close closes the file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in the file, sorted.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *Reader) TensorInfo(name string) (TensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("tensor %s not found", name)
	}
	return info, nil
}

// ReadTensor reads a tensor and converts it to float32.
func (r *Reader) ReadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, info.DataOffsets[1]-info.DataOffsets[0])
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}

	values, err := decodeFloat32(info.DType, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	raw, err := tensor.NewRaw(tensor.Shape(info.Shape), tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	copy(raw.Data(), values)

	return raw, nil
}

// VerifyChecksum compares the data section against the stored SHA-256.
// Files without a checksum entry pass.
func (r *Reader) VerifyChecksum() error {
	stored, ok := r.header.Metadata[MetaChecksum]
	if !ok {
		return nil
	}

	computed, err := ComputeChecksumReader(io.NewSectionReader(r.file, r.dataOffset, r.dataSize))
	if err != nil {
		return fmt.Errorf("failed to hash data section: %w", err)
	}
	return ValidateChecksum(computed, stored)
}

// Checkpoint is a loaded checkpoint file.
type Checkpoint struct {
	// Model maps dotted parameter names to values, without the "model." prefix.
	Model map[string]*tensor.RawTensor
	// Metadata is the "__metadata__" header entry.
	Metadata map[string]string
}

// LoadCheckpoint reads the model dictionary of the checkpoint at path.
//
// When any tensor name starts with "model.", only those tensors are taken
// and the prefix is removed. Otherwise every tensor is taken as-is, so
// plain SafeTensors state dicts load too.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close() // Read-only file
	}()

	if err := r.VerifyChecksum(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	names := r.TensorNames()
	sectioned := false
	for _, name := range names {
		if strings.HasPrefix(name, ModelPrefix) {
			sectioned = true
			break
		}
	}

	model := make(map[string]*tensor.RawTensor, len(names))
	for _, name := range names {
		key := name
		if sectioned {
			var ok bool
			if key, ok = strings.CutPrefix(name, ModelPrefix); !ok {
				continue
			}
		}

		raw, err := r.ReadTensor(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		model[key] = raw
	}

	return &Checkpoint{
		Model:    model,
		Metadata: r.Metadata(),
	}, nil
}

// Package serialization reads and writes pyramid checkpoints.
//
// A checkpoint is a SafeTensors container:
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes]
//
// The model dictionary is stored as tensors named "model.<dotted key>".
// The "__metadata__" entry carries "format": "fpn" and a SHA-256 of the
// data section; both are optional on read, so plain SafeTensors files
// (without the "model." section) load as a bare state dict.
//
// Supported dtypes on read: F32, F64, F16, BF16. Everything is converted to
// float32. Writes are always F32.
//
// Example usage:
//
//	// Save
//	err := serialization.SaveCheckpoint("fpn.safetensors", stateDict, nil)
//
//	// Load
//	ckpt, err := serialization.LoadCheckpoint("fpn.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	weights := ckpt.Model // map[string]*tensor.RawTensor
package serialization

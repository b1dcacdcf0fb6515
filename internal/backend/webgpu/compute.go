//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/fpn/internal/tensor"
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer rounded up to 16 bytes.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	aligned := make([]byte, (len(data)+15)&^15)
	copy(aligned, data)

	return b.createBuffer(aligned, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	result := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(result, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()

	return result, nil
}

// kernelCall describes one compute dispatch.
//
// Bindings are laid out as: inputs at 0..len(inputs)-1, the output at
// len(inputs), the uniform params right after.
type kernelCall struct {
	name       string
	code       string
	inputs     []*tensor.RawTensor
	outShape   tensor.Shape
	params     []uint32
	workgroups [3]uint32
}

// run executes a kernelCall and returns the output tensor.
func (b *Backend) run(call kernelCall) (*tensor.RawTensor, error) {
	pipeline := b.getOrCreatePipeline(call.name, b.compileShader(call.name, call.code))

	entries := make([]wgpu.BindGroupEntry, 0, len(call.inputs)+2)
	for i, in := range call.inputs {
		buf := b.createBuffer(floatBytes(in.Data()), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
		defer buf.Release()
		//nolint:gosec // G115: binding index and byte size are non-negative
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(in.ByteSize())))
	}

	output, err := tensor.NewRaw(call.outShape, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G115: ByteSize() returns non-negative int
	outSize := uint64(output.ByteSize())
	outBuf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  outSize,
	})
	defer outBuf.Release()
	//nolint:gosec // G115: binding index is small
	outBinding := uint32(len(call.inputs))
	entries = append(entries, wgpu.BufferBindingEntry(outBinding, outBuf, 0, outSize))

	params := make([]byte, 4*len(call.params))
	for i, p := range call.params {
		binary.LittleEndian.PutUint32(params[4*i:], p)
	}
	paramBuf := b.createUniformBuffer(params)
	defer paramBuf.Release()
	entries = append(entries, wgpu.BufferBindingEntry(outBinding+1, paramBuf, 0, uint64((len(params)+15)&^15)))

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(call.workgroups[0], call.workgroups[1], call.workgroups[2])
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readBuffer(outBuf, outSize)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // unsafe.Slice reinterprets the little-endian float32 payload
	copy(output.Data(), unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), output.NumElements()))

	return output, nil
}

// floatBytes views a float32 slice as bytes without copying.
func floatBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy upload
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), 4*len(data))
}

// flatGroups returns the 1D workgroup count covering n elements.
func flatGroups(n int) [3]uint32 {
	//nolint:gosec // G115: workgroup count is non-negative
	return [3]uint32{uint32((n + workgroupSize - 1) / workgroupSize), 1, 1}
}

// planeGroups returns the 8x8 tiled workgroup count covering an NCHW output.
func planeGroups(planes, h, w int) [3]uint32 {
	//nolint:gosec // G115: dimensions are positive
	return [3]uint32{uint32((w + 7) / 8), uint32((h + 7) / 8), uint32(planes)}
}

//go:build windows

package webgpu

// WGSL compute shaders for the pyramid operations.
// Using string constants instead of embed for simplicity.

// workgroupSize is the number of threads per workgroup for flat kernels.
const workgroupSize = 256

// addShader performs element-wise addition: result = a + b.
const addShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] + b[idx];
    }
}
`

// scalarMulShader multiplies every element by a scalar.
const scalarMulShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = input[idx] * params.scalar;
    }
}
`

// reluShader applies max(0, x).
const reluShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = max(input[idx], 0.0);
    }
}
`

// conv2dShader computes a direct 2D convolution with zero padding and a
// per-channel bias. One invocation per output element; z indexes n*COut+oc.
const conv2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> kernel: array<f32>;
@group(0) @binding(2) var<storage, read> bias: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;

struct Params {
    channels: u32,
    height: u32,
    width: u32,
    out_channels: u32,
    out_height: u32,
    out_width: u32,
    kernel_h: u32,
    kernel_w: u32,
    stride: u32,
    padding: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let ow = gid.x;
    let oh = gid.y;
    if (ow >= params.out_width || oh >= params.out_height) {
        return;
    }
    let n = gid.z / params.out_channels;
    let oc = gid.z % params.out_channels;

    var sum = bias[oc];
    for (var c = 0u; c < params.channels; c = c + 1u) {
        for (var kh = 0u; kh < params.kernel_h; kh = kh + 1u) {
            let h = i32(oh * params.stride + kh) - i32(params.padding);
            if (h < 0 || h >= i32(params.height)) {
                continue;
            }
            for (var kw = 0u; kw < params.kernel_w; kw = kw + 1u) {
                let w = i32(ow * params.stride + kw) - i32(params.padding);
                if (w < 0 || w >= i32(params.width)) {
                    continue;
                }
                let in_idx = ((n * params.channels + c) * params.height + u32(h)) * params.width + u32(w);
                let k_idx = ((oc * params.channels + c) * params.kernel_h + kh) * params.kernel_w + kw;
                sum = sum + input[in_idx] * kernel[k_idx];
            }
        }
    }

    let out_idx = (gid.z * params.out_height + oh) * params.out_width + ow;
    result[out_idx] = sum;
}
`

// maxPool2dShader takes the max over each window; padded positions never win.
const maxPool2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    planes: u32,
    height: u32,
    width: u32,
    out_height: u32,
    out_width: u32,
    kernel_size: u32,
    stride: u32,
    padding: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let ow = gid.x;
    let oh = gid.y;
    let plane = gid.z;
    if (ow >= params.out_width || oh >= params.out_height || plane >= params.planes) {
        return;
    }

    var best = -3.402823e+38;
    for (var kh = 0u; kh < params.kernel_size; kh = kh + 1u) {
        let h = i32(oh * params.stride + kh) - i32(params.padding);
        if (h < 0 || h >= i32(params.height)) {
            continue;
        }
        for (var kw = 0u; kw < params.kernel_size; kw = kw + 1u) {
            let w = i32(ow * params.stride + kw) - i32(params.padding);
            if (w < 0 || w >= i32(params.width)) {
                continue;
            }
            best = max(best, input[(plane * params.height + u32(h)) * params.width + u32(w)]);
        }
    }

    result[(plane * params.out_height + oh) * params.out_width + ow] = best;
}
`

// upsampleNearestShader repeats each input pixel scale x scale times.
const upsampleNearestShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    planes: u32,
    height: u32,
    width: u32,
    scale: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let out_w = params.width * params.scale;
    let out_h = params.height * params.scale;
    let ow = gid.x;
    let oh = gid.y;
    let plane = gid.z;
    if (ow >= out_w || oh >= out_h || plane >= params.planes) {
        return;
    }

    let h = oh / params.scale;
    let w = ow / params.scale;
    result[(plane * out_h + oh) * out_w + ow] = input[(plane * params.height + h) * params.width + w];
}
`

package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/fpn/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape: [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape: [out_channels] (optional, may be nil)
// Output shape: [batch, out_channels, out_h, out_w]
//
// Algorithm, per batch sample:
//  1. Im2col: unfold the input into a [C_in*K_h*K_w, H_out*W_out] matrix
//  2. GEMM: [C_out, C_in*K_h*K_w] @ col -> [C_out, H_out*W_out]
//  3. The GEMM result is already the NCHW plane layout of that sample
//
// 1x1 convolutions with stride 1 and no padding skip im2col entirely:
// the input plane is already the column matrix.
func (cpu *CPUBackend) Conv2D(input, kernel, bias *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	N, CIn, H, W := input.Shape().NCHW("conv2d")

	kernelShape := kernel.Shape()
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	COut, CInK, KH, KW := kernelShape[0], kernelShape[1], kernelShape[2], kernelShape[3]

	if CIn != CInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, CInK))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}
	if bias != nil && bias.NumElements() != COut {
		panic(fmt.Sprintf("conv2d: bias has %d elements, expected %d", bias.NumElements(), COut))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output := tensor.MustRaw(tensor.Shape{N, COut, HOut, WOut}, cpu.device, "conv2d")

	inputData := input.Data()
	outputData := output.Data()
	colRows := CIn * KH * KW
	colCols := HOut * WOut
	pointwise := KH == 1 && KW == 1 && stride == 1 && padding == 0

	weights := blas32.General{Rows: COut, Cols: colRows, Stride: colRows, Data: kernel.Data()}

	cpu.par.For(N, func(n int) {
		sample := inputData[n*CIn*H*W : (n+1)*CIn*H*W]

		var col []float32
		if pointwise {
			col = sample
		} else {
			col = make([]float32, colRows*colCols)
			im2col(col, sample, CIn, H, W, KH, KW, HOut, WOut, stride, padding)
		}

		dst := outputData[n*COut*colCols : (n+1)*COut*colCols]
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			weights,
			blas32.General{Rows: colRows, Cols: colCols, Stride: colCols, Data: col},
			0,
			blas32.General{Rows: COut, Cols: colCols, Stride: colCols, Data: dst},
		)

		if bias != nil {
			addChannelBias(dst, bias.Data(), colCols)
		}
	})

	return output
}

// im2col unfolds one sample [C, H, W] into col [C*K_h*K_w, H_out*W_out].
//
// Row (c, kh, kw) holds, for every output position, the input value the
// kernel tap (kh, kw) of channel c sees there; out-of-bounds taps read the
// zero padding.
func im2col(col, sample []float32, C, H, W, KH, KW, HOut, WOut, stride, padding int) {
	plane := HOut * WOut
	row := 0
	for c := 0; c < C; c++ {
		channel := sample[c*H*W : (c+1)*H*W]
		for kh := 0; kh < KH; kh++ {
			for kw := 0; kw < KW; kw++ {
				dst := col[row*plane : (row+1)*plane]
				for outH := 0; outH < HOut; outH++ {
					h := outH*stride - padding + kh
					rowDst := dst[outH*WOut : (outH+1)*WOut]
					if h < 0 || h >= H {
						clear(rowDst)
						continue
					}
					src := channel[h*W : (h+1)*W]
					for outW := 0; outW < WOut; outW++ {
						w := outW*stride - padding + kw
						if w >= 0 && w < W {
							rowDst[outW] = src[w]
						} else {
							rowDst[outW] = 0
						}
					}
				}
				row++
			}
		}
	}
}

// addChannelBias adds bias[c] to every element of plane c in dst.
func addChannelBias(dst, bias []float32, plane int) {
	for c, b := range bias {
		p := dst[c*plane : (c+1)*plane]
		for i := range p {
			p[i] += b
		}
	}
}

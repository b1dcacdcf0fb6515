package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/fpn/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height + 2*padding - kernelSize) / stride + 1
//	out_width = (width + 2*padding - kernelSize) / stride + 1
//
// Padding is implicit negative infinity: padded positions never win.
// A kernel size of 1 degenerates to strided subsampling:
//
//	Input: [[1,2,3],    kernel=1, stride=2    Output: [[1,3],
//	        [4,5,6],                                    [7,9]]
//	        [7,8,9]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	N, C, H, W := input.Shape().NCHW("maxpool2d")

	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if padding < 0 || 2*padding > kernelSize {
		panic(fmt.Sprintf("maxpool2d: padding %d must be in [0, kernel/2] for kernel %d", padding, kernelSize))
	}
	if kernelSize > H+2*padding || kernelSize > W+2*padding {
		panic(fmt.Sprintf("maxpool2d: kernel size %d too large for input %dx%d", kernelSize, H, W))
	}

	HOut := (H+2*padding-kernelSize)/stride + 1
	WOut := (W+2*padding-kernelSize)/stride + 1

	output := tensor.MustRaw(tensor.Shape{N, C, HOut, WOut}, cpu.device, "maxpool2d")
	inputData := input.Data()
	outputData := output.Data()

	cpu.par.ForPlanes(N, C, func(n, c int) {
		// Pre-slice planes: eliminates (n*C+c)*H*W bounds checks
		plane := (n*C + c)
		in := inputData[plane*H*W : (plane+1)*H*W]
		out := outputData[plane*HOut*WOut : (plane+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH*stride - padding
			hEnd := min(hStart+kernelSize, H)
			hStart = max(hStart, 0)

			for outW := 0; outW < WOut; outW++ {
				wStart := outW*stride - padding
				wEnd := min(wStart+kernelSize, W)
				wStart = max(wStart, 0)

				maxVal := float32(math.Inf(-1))
				for h := hStart; h < hEnd; h++ {
					row := in[h*W : (h+1)*W]
					for w := wStart; w < wEnd; w++ {
						if row[w] > maxVal {
							maxVal = row[w]
						}
					}
				}
				out[outH*WOut+outW] = maxVal
			}
		}
	})

	return output
}

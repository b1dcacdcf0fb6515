package cpu

import (
	"fmt"

	"github.com/born-ml/fpn/internal/tensor"
)

// UpsampleNearest2D enlarges H and W by an integer factor, copying each
// input pixel into a scale x scale block.
//
//	out[n, c, h, w] = in[n, c, h/scale, w/scale]
func (cpu *CPUBackend) UpsampleNearest2D(input *tensor.RawTensor, scale int) *tensor.RawTensor {
	N, C, H, W := input.Shape().NCHW("upsample_nearest2d")
	if scale <= 0 {
		panic(fmt.Sprintf("upsample_nearest2d: invalid scale %d", scale))
	}

	HOut, WOut := H*scale, W*scale
	output := tensor.MustRaw(tensor.Shape{N, C, HOut, WOut}, cpu.device, "upsample_nearest2d")
	inputData := input.Data()
	outputData := output.Data()

	cpu.par.ForPlanes(N, C, func(n, c int) {
		plane := n*C + c
		in := inputData[plane*H*W : (plane+1)*H*W]
		out := outputData[plane*HOut*WOut : (plane+1)*HOut*WOut]

		for h := 0; h < HOut; h++ {
			src := in[(h/scale)*W : (h/scale+1)*W]
			dst := out[h*WOut : (h+1)*WOut]
			for w := range dst {
				dst[w] = src[w/scale]
			}
		}
	})

	return output
}

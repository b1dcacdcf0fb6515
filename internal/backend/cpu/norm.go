package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/fpn/internal/tensor"
)

// ChannelAffine computes y = x*scale[c] + shift[c] for every channel c.
//
// Frozen batch norm and the affine half of group norm both reduce to this.
func (cpu *CPUBackend) ChannelAffine(x, scale, shift *tensor.RawTensor) *tensor.RawTensor {
	N, C, H, W := x.Shape().NCHW("channel_affine")
	if scale.NumElements() != C || shift.NumElements() != C {
		panic(fmt.Sprintf("channel_affine: scale/shift have %d/%d elements, expected %d",
			scale.NumElements(), shift.NumElements(), C))
	}

	output := tensor.MustRaw(x.Shape(), cpu.device, "channel_affine")
	in, out := x.Data(), output.Data()
	s, b := scale.Data(), shift.Data()
	plane := H * W

	cpu.par.ForPlanes(N, C, func(n, c int) {
		off := (n*C + c) * plane
		for i := off; i < off+plane; i++ {
			out[i] = in[i]*s[c] + b[c]
		}
	})

	return output
}

// GroupNorm normalizes each (sample, channel group) to zero mean and unit
// variance. Statistics use the biased variance, accumulated in float64.
func (cpu *CPUBackend) GroupNorm(x *tensor.RawTensor, groups int, eps float32) *tensor.RawTensor {
	N, C, H, W := x.Shape().NCHW("group_norm")
	if groups <= 0 || C%groups != 0 {
		panic(fmt.Sprintf("group_norm: %d channels not divisible into %d groups", C, groups))
	}

	output := tensor.MustRaw(x.Shape(), cpu.device, "group_norm")
	in, out := x.Data(), output.Data()
	groupSize := (C / groups) * H * W

	cpu.par.For(N*groups, func(k int) {
		off := k * groupSize
		src := in[off : off+groupSize]
		dst := out[off : off+groupSize]

		var sum float64
		for _, v := range src {
			sum += float64(v)
		}
		mean := sum / float64(groupSize)

		var sq float64
		for _, v := range src {
			d := float64(v) - mean
			sq += d * d
		}
		inv := 1 / math.Sqrt(sq/float64(groupSize)+float64(eps))

		for i, v := range src {
			dst[i] = float32((float64(v) - mean) * inv)
		}
	})

	return output
}

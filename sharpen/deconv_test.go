/*
NAME
  deconv_test.go

DESCRIPTION
  deconv_test.go tests Richardson-Lucy and Wiener deconvolution against a
  synthetically blurred frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sharpen

import (
	"testing"

	"github.com/ausocean/lucky/compute/cpu"
	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/sharpen/psf"
)

// blur convolves f with kernel via direct spatial-domain summation, wrapping
// at the border to match the FFT-based deconvolution's circular convolution
// assumption.
func blur(f *frame.Frame, k psf.Kernel) *frame.Frame {
	out := frame.New(f.H, f.W)
	half := k.Size / 2
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			var acc float64
			for kr := 0; kr < k.Size; kr++ {
				for kc := 0; kc < k.Size; kc++ {
					rr := ((r+kr-half)%f.H + f.H) % f.H
					cc := ((c+kc-half)%f.W + f.W) % f.W
					acc += k.At(kr, kc) * float64(f.At(rr, cc))
				}
			}
			out.Set(r, c, float32(acc))
		}
	}
	return out
}

func spike(h, w, r, c int) *frame.Frame {
	f := frame.New(h, w)
	f.Set(r, c, 1)
	return f
}

func TestRichardsonLucySharpensBlurredSpike(t *testing.T) {
	backend := cpu.New()
	k := psf.Generate(psf.Gaussian, 2, 0)
	sharp := spike(32, 32, 16, 16)
	blurred := blur(sharp, k)

	restored := RichardsonLucy(backend, blurred, k, 20)

	if restored.At(16, 16) <= blurred.At(16, 16) {
		t.Errorf("Richardson-Lucy should concentrate energy back at the spike: restored=%v blurred=%v", restored.At(16, 16), blurred.At(16, 16))
	}
}

func TestWienerRecoversSomeSharpness(t *testing.T) {
	backend := cpu.New()
	k := psf.Generate(psf.Gaussian, 2, 0)
	sharp := spike(32, 32, 16, 16)
	blurred := blur(sharp, k)

	restored := Wiener(backend, blurred, k, 1e-3)
	if restored.At(16, 16) <= blurred.At(16, 16) {
		t.Errorf("Wiener deconvolution should concentrate energy back at the spike: restored=%v blurred=%v", restored.At(16, 16), blurred.At(16, 16))
	}
}

func TestDeconvolutionOutputIsClamped(t *testing.T) {
	backend := cpu.New()
	k := psf.Generate(psf.Gaussian, 1, 0)
	f := frame.New(16, 16)
	for i := range f.Pix {
		f.Pix[i] = 1
	}

	rl := RichardsonLucy(backend, f, k, 5)
	for i, v := range rl.Pix {
		if v < 0 || v > 1 {
			t.Fatalf("RichardsonLucy Pix[%d] = %v, want in [0, 1]", i, v)
		}
	}

	w := Wiener(backend, f, k, 1e-2)
	for i, v := range w.Pix {
		if v < 0 || v > 1 {
			t.Fatalf("Wiener Pix[%d] = %v, want in [0, 1]", i, v)
		}
	}
}

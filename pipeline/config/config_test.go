/*
NAME
  config_test.go

DESCRIPTION
  config_test.go provides testing for Config's Default and Validate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/lucky/frame"
)

type dumbLogger struct{}

func (dumbLogger) Debug(string, ...interface{})   {}
func (dumbLogger) Info(string, ...interface{})    {}
func (dumbLogger) Warning(string, ...interface{}) {}
func (dumbLogger) Error(string, ...interface{})   {}
func (dumbLogger) Fatal(string, ...interface{})   {}

func TestDefaultValidates(t *testing.T) {
	cfg := Default(dumbLogger{})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
}

func TestDefaultIsStable(t *testing.T) {
	a := Default(dumbLogger{})
	b := Default(dumbLogger{})
	if !cmp.Equal(a, b) {
		t.Errorf("Default is not deterministic\na: %v\nb: %v", a, b)
	}
}

func TestValidate(t *testing.T) {
	base := Default(dumbLogger{})

	tests := []struct {
		name    string
		modify  func(c Config) Config
		wantErr bool
	}{
		{
			name:    "valid default",
			modify:  func(c Config) Config { return c },
			wantErr: false,
		},
		{
			name:    "select percentage zero",
			modify:  func(c Config) Config { c.SelectPercentage = 0; return c },
			wantErr: true,
		},
		{
			name:    "select percentage over one",
			modify:  func(c Config) Config { c.SelectPercentage = 1.1; return c },
			wantErr: true,
		},
		{
			name: "multipoint requires positive ap size",
			modify: func(c Config) Config {
				c.StackMethod = StackMultiPoint
				c.ApSize = 0
				return c
			},
			wantErr: true,
		},
		{
			name: "sigma clip requires positive sigma",
			modify: func(c Config) Config {
				c.StackMethod = StackSigmaClip
				c.SigmaClipSigma = 0
				return c
			},
			wantErr: true,
		},
		{
			name: "drizzle scale must be at least one",
			modify: func(c Config) Config {
				c.StackMethod = StackDrizzle
				c.DrizzleScale = 0.5
				return c
			},
			wantErr: true,
		},
		{
			name: "wavelet coeffs length must match layers",
			modify: func(c Config) Config {
				c.WaveletLayers = 3
				c.WaveletCoeffs = []float64{1, 1}
				return c
			},
			wantErr: true,
		},
		{
			name: "richardson-lucy requires positive iterations",
			modify: func(c Config) Config {
				c.Deconvolution = DeconvRichardsonLucy
				c.RLIterations = 0
				return c
			},
			wantErr: true,
		},
		{
			name:    "dropped frame fraction out of range",
			modify:  func(c Config) Config { c.DroppedFrameFraction = 1.5; return c },
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.modify(base).Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
			if err != nil && !frame.Is(err, frame.InvalidConfig) {
				t.Errorf("Validate() error kind = %v, want InvalidConfig", err)
			}
		})
	}
}

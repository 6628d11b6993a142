package fk

import (
	"errors"
	"testing"
)

func TestScalarPack(t *testing.T) {
	tests := []struct {
		name    string
		s       Scalar
		f       Format
		want    Vec
		wantErr error
	}{
		{"one channel", NewScalar(2), F32C1, V1(2), nil},
		{"narrowed to u8", NewScalar(300, -5, 2.5), U8C3, V3(255, 0, 2), nil},
		{"narrowed to f32", NewScalar(0.1, 0.2), F32C2, V2(float64(float32(0.1)), float64(float32(0.2))), nil},
		{"four channels", NewScalar(1, 2, 3, 4), S16C1.WithChannels(4), V4(1, 2, 3, 4), nil},
		{"too few components", NewScalar(1, 2), U8C3, Vec{}, ErrChannelMismatch},
		{"too many components", NewScalar(1, 2, 3, 4, 5), F32C4, Vec{}, ErrChannelMismatch},
		{"invalid format", NewScalar(1), Format{Float32, 0}, Vec{}, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.Pack(tt.f)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Pack() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Pack() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScalarAt(t *testing.T) {
	s := NewScalar(4, 5)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.At(1) != 5 || s.At(2) != 0 || s.At(-1) != 0 {
		t.Errorf("At() = %v, %v, %v", s.At(1), s.At(2), s.At(-1))
	}
}

func TestVecString(t *testing.T) {
	if got := V3(1, 0.5, -2).String(); got != "(1,0.5,-2)" {
		t.Errorf("String() = %q", got)
	}
}

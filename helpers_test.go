package fk

import (
	"context"
	"testing"
)

// mustOp unwraps a builder result in tests where the builder cannot fail.
func mustOp(op Op, err error) Op {
	if err != nil {
		panic(err)
	}
	return op
}

// newFilled returns a width × height image with pixel (x, y) set to fn(x, y).
func newFilled(t testing.TB, width, height int, f Format, fn func(x, y int) Vec) *Image {
	t.Helper()
	img, err := NewImage(width, height, f)
	if err != nil {
		t.Fatalf("NewImage(%d, %d, %s) = %v", width, height, f, err)
	}
	for y := range height {
		for x := range width {
			img.Set(x, y, fn(x, y))
		}
	}
	return img
}

// newTestStream returns a CPU stream closed at the end of the test.
func newTestStream(t testing.TB, opts ...StreamOption) *CPUStream {
	t.Helper()
	s := NewStream(opts...)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return s
}

func synchronize(t testing.TB, s Stream) {
	t.Helper()
	if err := s.Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize() = %v", err)
	}
}

// recordStream records launches and runs them on Synchronize.
type recordStream struct {
	launches []*Launch
	fault    error
}

func (r *recordStream) Launch(l *Launch) { r.launches = append(r.launches, l) }

func (r *recordStream) Err() error {
	err := r.fault
	r.fault = nil
	return err
}

func (r *recordStream) Synchronize(context.Context) error {
	for _, l := range r.launches {
		l.Run()
	}
	r.launches = nil
	return nil
}

func (r *recordStream) Close() error { return nil }

package main

import (
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/fk"
)

func newCropsCmd(g *globalFlags) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "crops",
		Short: "Resize N horizontal strips of an image in one batched launch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n <= 0 {
				return fmt.Errorf("--count must be positive, got %d", n)
			}
			src, err := loadSource(g.input)
			if err != nil {
				return fmt.Errorf("load input: %w", err)
			}
			s := g.openStream()
			defer closeStream(s)

			strips, err := horizontalStrips(src.View(), n)
			if err != nil {
				return err
			}
			tensor := make([]byte, n*g.width*g.height*fk.F32C3.PixelBytes())

			start := time.Now()
			if err := resizeCrops(s, strips, tensor, g.width, g.height); err != nil {
				return err
			}
			if err := s.Synchronize(cmd.Context()); err != nil {
				return err
			}
			log.Printf("Resized %d strips into a %dx%dx%d tensor (%s) in %v",
				n, g.width, g.height, n, humanize.Bytes(uint64(len(tensor))), time.Since(start))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 8, "number of strips")
	return cmd
}

// horizontalStrips cuts src into n strips of (almost) equal height. Strips
// of an image shorter than n rows are empty.
func horizontalStrips(src fk.View, n int) ([]fk.View, error) {
	strips := make([]fk.View, n)
	for i := range strips {
		y0 := i * src.Height() / n
		y1 := (i + 1) * src.Height() / n
		strip, err := src.Crop(0, y0, src.Width(), y1-y0)
		if err != nil {
			return nil, err
		}
		strips[i] = strip
	}
	return strips, nil
}

// resizeCrops resizes every strip to w × h and writes them as planes of a
// f32c3 tensor in one launch. Empty strips come out as zeros.
func resizeCrops(s fk.Stream, strips []fk.View, tensor []byte, w, h int) error {
	read, err := fk.ResizeBatchWithDefault(strips, fk.Size{Width: w, Height: h}, fk.InterpLinear,
		len(strips), fk.NewScalar(0, 0, 0))
	if err != nil {
		return err
	}
	if deg := read.Degenerate(); len(deg) > 0 {
		log.Printf("Degenerate strips: %v", deg)
	}

	dst, err := fk.NewPlanarView(tensor, w, h, fk.F32C3.RowBytes(w), len(strips), fk.F32C3)
	if err != nil {
		return err
	}
	return fk.Execute(s, read, fk.Write(dst))
}

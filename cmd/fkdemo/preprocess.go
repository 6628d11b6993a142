package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/gogpu/fk"
)

func newPreprocessCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Resize, normalize and split an image into float32 planes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := loadSource(g.input)
			if err != nil {
				return fmt.Errorf("load input: %w", err)
			}
			s := g.openStream()
			defer closeStream(s)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			start := time.Now()
			planes, err := preprocess(s, src.View(), g.width, g.height)
			if err != nil {
				return fmt.Errorf("preprocess: %w", err)
			}
			if err := s.Synchronize(ctx); err != nil {
				return err
			}
			log.Printf("Preprocessed %dx%d -> 3x%dx%d in %v",
				src.Width(), src.Height(), g.width, g.height, time.Since(start))

			for c, p := range planes {
				name := fmt.Sprintf("%s_%d.png", output, c)
				if err := savePlane(ctx, s, p, c, name); err != nil {
					return fmt.Errorf("save %s: %w", name, err)
				}
				log.Printf("Saved %s", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "plane", "output file prefix")
	return cmd
}

// preprocessChain returns the stages after the resize: v/255, minus mean,
// divided by std, all on f32c3.
func preprocessChain() ([]fk.Op, error) {
	scale, err := fk.Multiply(fk.F32C3, fk.NewScalar(1.0/255, 1.0/255, 1.0/255))
	if err != nil {
		return nil, err
	}
	sub, err := fk.Subtract(fk.F32C3, fk.NewScalar(mean[:]...))
	if err != nil {
		return nil, err
	}
	div, err := fk.Divide(fk.F32C3, fk.NewScalar(std[:]...))
	if err != nil {
		return nil, err
	}
	return []fk.Op{scale, sub, div}, nil
}

// preprocess resizes src and writes (v/255 - mean) / std into three planes.
func preprocess(s fk.Stream, src fk.View, w, h int) ([3]*fk.Image, error) {
	var planes [3]*fk.Image
	dsts := make([]fk.View, 3)
	for c := range planes {
		img, err := fk.NewImage(w, h, fk.F32C1)
		if err != nil {
			return planes, err
		}
		planes[c] = img
		dsts[c] = img.View()
	}

	resize, err := fk.Resize(src, fk.Size{Width: w, Height: h}, 0, 0, fk.InterpLinear)
	if err != nil {
		return planes, err
	}
	middle, err := preprocessChain()
	if err != nil {
		return planes, err
	}
	split, err := fk.Split(fk.F32C3, dsts)
	if err != nil {
		return planes, err
	}

	ops := append([]fk.Op{resize}, middle...)
	return planes, fk.Execute(s, append(ops, split)...)
}

// savePlane undoes the normalization of channel c and saves it as an image.
func savePlane(ctx context.Context, s fk.Stream, plane *fk.Image, c int, name string) error {
	gray := image.NewGray(image.Rect(0, 0, plane.Width(), plane.Height()))
	dst, err := fk.NewView(gray.Pix, plane.Width(), plane.Height(), gray.Stride, fk.U8C1)
	if err != nil {
		return err
	}

	mul, err := fk.Multiply(fk.F32C1, fk.NewScalar(std[c]*255))
	if err != nil {
		return err
	}
	add, err := fk.Add(fk.F32C1, fk.NewScalar(mean[c]*255))
	if err != nil {
		return err
	}
	conv, err := fk.ConvertTo(fk.F32C1, fk.U8C1)
	if err != nil {
		return err
	}
	if err := fk.Transform(s, plane.View(), dst, mul, add, conv); err != nil {
		return err
	}
	if err := s.Synchronize(ctx); err != nil {
		return err
	}
	return imaging.Save(gray, name)
}

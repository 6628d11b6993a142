package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gogpu/fk"
)

// benchMethod runs one preprocessing variant once and reports how many
// launches it submitted.
type benchMethod struct {
	name string
	run  func(ctx context.Context) (launches int, err error)
}

func newBenchCmd(g *globalFlags) *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare fused, unfused and imaging-based preprocessing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if iterations <= 0 {
				return fmt.Errorf("--iterations must be positive, got %d", iterations)
			}
			src, err := loadSource(g.input)
			if err != nil {
				return fmt.Errorf("load input: %w", err)
			}
			s := g.openStream()
			defer closeStream(s)

			methods := []benchMethod{
				{"fused", func(ctx context.Context) (int, error) {
					if _, err := preprocess(s, src.View(), g.width, g.height); err != nil {
						return 0, err
					}
					return 1, s.Synchronize(ctx)
				}},
				{"unfused", func(ctx context.Context) (int, error) {
					return preprocessUnfused(ctx, s, src.View(), g.width, g.height)
				}},
				{"imaging", func(context.Context) (int, error) {
					preprocessImaging(src, g.width, g.height)
					return 0, nil
				}},
			}

			inBytes := uint64(len(src.Data())) //nolint:gosec // slice length is non-negative
			rows := make([][]string, 0, len(methods))
			for _, m := range methods {
				var launches int
				start := time.Now()
				for range iterations {
					n, err := m.run(cmd.Context())
					if err != nil {
						return fmt.Errorf("%s: %w", m.name, err)
					}
					launches = n
				}
				per := time.Since(start) / time.Duration(iterations)
				rate := uint64(float64(inBytes) / per.Seconds())
				rows = append(rows, []string{
					m.name,
					fmt.Sprint(launches),
					per.String(),
					humanize.Bytes(rate) + "/s",
				})
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"METHOD", "LAUNCHES", "TIME/ITER", "INPUT RATE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.AppendBulk(rows)
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 20, "runs per method")
	return cmd
}

// preprocessUnfused runs the preprocessing chain one stage per launch
// through intermediate images.
func preprocessUnfused(ctx context.Context, s fk.Stream, src fk.View, w, h int) (int, error) {
	resized, err := fk.NewImage(w, h, fk.F32C3)
	if err != nil {
		return 0, err
	}
	resize, err := fk.Resize(src, fk.Size{Width: w, Height: h}, 0, 0, fk.InterpLinear)
	if err != nil {
		return 0, err
	}
	if err := fk.Execute(s, resize, fk.Write(resized.View())); err != nil {
		return 0, err
	}
	launches := 1

	middle, err := preprocessChain()
	if err != nil {
		return 0, err
	}
	cur := resized
	for _, op := range middle {
		next, err := fk.NewImage(w, h, fk.F32C3)
		if err != nil {
			return 0, err
		}
		if err := fk.Transform(s, cur.View(), next.View(), op); err != nil {
			return 0, err
		}
		cur = next
		launches++
	}

	dsts := make([]fk.View, 3)
	for c := range dsts {
		img, err := fk.NewImage(w, h, fk.F32C1)
		if err != nil {
			return 0, err
		}
		dsts[c] = img.View()
	}
	split, err := fk.Split(fk.F32C3, dsts)
	if err != nil {
		return 0, err
	}
	if err := fk.Execute(s, fk.Read(cur.View()), split); err != nil {
		return 0, err
	}
	launches++
	return launches, s.Synchronize(ctx)
}

// preprocessImaging is the same preprocessing written directly against
// image.NRGBA with disintegration/imaging, as a baseline.
func preprocessImaging(src *fk.Image, w, h int) [3][]float32 {
	resized := imaging.Resize(toNRGBA(src), w, h, imaging.Linear)
	var planes [3][]float32
	for c := range planes {
		planes[c] = make([]float32, w*h)
	}
	for y := range h {
		row := resized.Pix[y*resized.Stride:]
		for x := range w {
			for c := range 3 {
				v := float64(row[x*4+c]) / 255
				planes[c][y*w+x] = float32((v - mean[c]) / std[c])
			}
		}
	}
	return planes
}

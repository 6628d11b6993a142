// Command fkdemo runs fused image preprocessing pipelines.
//
// Subcommands:
//
//	preprocess  resize, normalize and split an image into planar float32
//	            channels in one launch, then save each channel as PNG
//	crops       resize N horizontal strips of an image in one batched launch
//	bench       compare fused, unfused and imaging-based preprocessing
//
// Inputs are decoded with disintegration/imaging (PNG, JPEG, GIF, BMP, TIFF)
// plus WebP from golang.org/x/image. Without --input a generated gradient is
// used.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/fk"
	"github.com/gogpu/fk/gpu"
)

// Normalization constants of the usual ImageNet preprocessing.
var (
	mean = [3]float64{0.485, 0.456, 0.406}
	std  = [3]float64{0.229, 0.224, 0.225}
)

type globalFlags struct {
	input   string
	width   int
	height  int
	useGPU  bool
	verbose bool
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "fkdemo",
		Short:         "Fused elementwise image pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			if g.verbose {
				fk.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.input, "input", "i", "", "input image (empty: generated gradient)")
	pf.IntVar(&g.width, "width", 224, "output width")
	pf.IntVar(&g.height, "height", 224, "output height")
	pf.BoolVar(&g.useGPU, "gpu", false, "run on the GPU when available")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newPreprocessCmd(&g),
		newCropsCmd(&g),
		newBenchCmd(&g),
	)
	return root
}

// openStream returns a GPU stream when requested and available, else a CPU
// stream.
func (g *globalFlags) openStream() fk.Stream {
	if g.useGPU {
		return gpu.NewStreamOrCPU()
	}
	return fk.NewStream()
}

func closeStream(s fk.Stream) {
	if err := s.Close(); err != nil {
		log.Printf("Stream close: %v", err)
	}
}

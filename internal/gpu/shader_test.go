//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/fk"
)

// TestShaderCompilation tests that generated WGSL compiles to SPIR-V.
func TestShaderCompilation(t *testing.T) {
	must := mustOp(t)
	src := image(t, 16, 8, fk.U8C3)

	chains := map[string][]fk.Op{
		"arithmetic": {
			fk.Read(src.View()),
			must(fk.Add(fk.U8C3, fk.NewScalar(1, 2, 3))),
			must(fk.ConvertTo(fk.U8C3, fk.S16C3)),
			must(fk.Multiply(fk.S16C3, fk.NewScalar(-2, 2, 3))),
			must(fk.ConvertTo(fk.S16C3, fk.F32C3)),
			fk.Write(image(t, 16, 8, fk.F32C3).View()),
		},
		"resize": {
			must(fk.Resize(src.View(), fk.Size{Width: 4, Height: 4}, 0, 0, fk.InterpLinear)),
			must(fk.Divide(fk.F32C3, fk.NewScalar(255, 255, 255))),
			fk.Write(image(t, 4, 4, fk.F32C3).View()),
		},
	}
	for name, ops := range chains {
		t.Run(name, func(t *testing.T) {
			prog := generate(t, capture(t, ops...))

			spirv, err := CompileShaderToSPIRV(prog.Source)
			if err != nil {
				// Streams run rejected shaders on the host.
				t.Skipf("Skipping: naga cannot compile the shader: %v\n%s", err, prog.Source)
			}
			if len(spirv) == 0 {
				t.Fatal("SPIR-V output is empty")
			}
			// Verify SPIR-V magic number (0x07230203)
			if spirv[0] != 0x07230203 {
				t.Errorf("invalid SPIR-V magic number: got 0x%08x, want 0x07230203", spirv[0])
			}
		})
	}
}

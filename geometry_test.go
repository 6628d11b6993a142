package fk

import "testing"

func TestLaunchGeometry(t *testing.T) {
	tests := []struct {
		extent    Extent
		wantGrid  Dim3
		wantBlock Dim3
	}{
		{Extent{Width: 300, Height: 1, Planes: 1}, Dim3{X: 2, Y: 1, Z: 1}, Dim3{X: 256, Y: 1, Z: 1}},
		{Extent{Width: 100, Height: 1, Planes: 1}, Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 100, Y: 1, Z: 1}},
		{Extent{Width: 100, Height: 50, Planes: 1}, Dim3{X: 4, Y: 7, Z: 1}, Dim3{X: 32, Y: 8, Z: 1}},
		{Extent{Width: 5, Height: 3, Planes: 4}, Dim3{X: 1, Y: 1, Z: 4}, Dim3{X: 5, Y: 3, Z: 1}},
		{Extent{Width: 224, Height: 224, Planes: 50}, Dim3{X: 7, Y: 28, Z: 50}, Dim3{X: 32, Y: 8, Z: 1}},
		{Extent{Width: 1, Height: 300, Planes: 1}, Dim3{X: 1, Y: 38, Z: 1}, Dim3{X: 1, Y: 8, Z: 1}},
		{Extent{Width: 0, Height: 5, Planes: 1}, Dim3{}, Dim3{}},
	}
	for _, tt := range tests {
		grid, block := LaunchGeometry(tt.extent)
		if grid != tt.wantGrid || block != tt.wantBlock {
			t.Errorf("LaunchGeometry(%+v) = %+v, %+v, want %+v, %+v",
				tt.extent, grid, block, tt.wantGrid, tt.wantBlock)
		}
		// The grid must cover the extent.
		if !tt.extent.IsEmpty() {
			if grid.X*block.X < tt.extent.Width || grid.Y*block.Y < tt.extent.Height || grid.Z*block.Z < tt.extent.Planes {
				t.Errorf("LaunchGeometry(%+v) does not cover the extent", tt.extent)
			}
		}
	}
}

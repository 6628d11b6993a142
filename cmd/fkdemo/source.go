package main

import (
	"image"
	"log"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp"

	"github.com/gogpu/fk"
)

// loadSource decodes path into a u8c3 image, or generates a gradient.
// EXIF orientation is applied so the pixels match what viewers show.
func loadSource(path string) (*fk.Image, error) {
	if path == "" {
		return gradient(640, 480)
	}
	m, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	log.Printf("Decoded %s %v", path, m.Bounds().Size())
	return fromImage(m)
}

// fromImage copies the RGB channels of m into a new u8c3 image.
func fromImage(m image.Image) (*fk.Image, error) {
	nrgba := imaging.Clone(m)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	img, err := fk.NewImage(w, h, fk.U8C3)
	if err != nil {
		return nil, err
	}
	data := img.Data()
	for y := range h {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := data[y*img.Stride():]
		for x := range w {
			copy(dst[x*3:x*3+3], src[x*4:x*4+3])
		}
	}
	return img, nil
}

// toNRGBA copies a u8c3 image into an image.NRGBA.
func toNRGBA(img *fk.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width(), img.Height()))
	data := img.Data()
	for y := range img.Height() {
		src := data[y*img.Stride():]
		dst := out.Pix[y*out.Stride:]
		for x := range img.Width() {
			copy(dst[x*4:x*4+3], src[x*3:x*3+3])
			dst[x*4+3] = 0xff
		}
	}
	return out
}

func gradient(w, h int) (*fk.Image, error) {
	img, err := fk.NewImage(w, h, fk.U8C3)
	if err != nil {
		return nil, err
	}
	for y := range h {
		for x := range w {
			img.Set(x, y, fk.V3(
				float64(255*x/(w-1)),
				float64(255*y/(h-1)),
				float64(255*(x+y)/(w+h-2)),
			))
		}
	}
	return img, nil
}

package devserver

import (
	"image"
	"image/color"
	"sort"
)

const maxPaletteColors = 256

type colorBucket struct {
	count      int
	r, g, b, a uint64
}

// adaptivePalette picks up to maxColors colors that best cover img.
// Pixels are grouped by their top 5 bits per color channel and 3 bits of alpha,
// the most populated groups win and each contributes the average of its pixels.
func adaptivePalette(img image.Image, maxColors int) color.Palette {
	buckets := map[uint32]*colorBucket{}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			key := uint32(c.R>>3)<<13 | uint32(c.G>>3)<<8 | uint32(c.B>>3)<<3 | uint32(c.A>>5)

			bucket, ok := buckets[key]
			if !ok {
				bucket = &colorBucket{}
				buckets[key] = bucket
			}
			bucket.count++
			bucket.r += uint64(c.R)
			bucket.g += uint64(c.G)
			bucket.b += uint64(c.B)
			bucket.a += uint64(c.A)
		}
	}

	keys := make([]uint32, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := buckets[keys[i]].count, buckets[keys[j]].count
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > maxColors {
		keys = keys[:maxColors]
	}

	p := make(color.Palette, 0, len(keys))
	for _, key := range keys {
		bucket := buckets[key]
		n := uint64(bucket.count)
		p = append(p, color.NRGBA{
			R: uint8(bucket.r / n),
			G: uint8(bucket.g / n),
			B: uint8(bucket.b / n),
			A: uint8(bucket.a / n),
		})
	}
	if len(p) == 0 {
		p = append(p, color.NRGBA{})
	}
	return p
}

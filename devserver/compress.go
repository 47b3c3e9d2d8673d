package devserver

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// lowQualityThreshold is the quality below which PNGs are reduced to a 256 color palette.
const lowQualityThreshold = 50

// compressFile writes a compressed copy of inputPath to outputPath, picking the method by extension.
// Unknown types are copied unchanged.
func compressFile(inputPath, outputPath string, quality int, ext string) error {
	switch ext {
	case "jpg", "jpeg":
		return compressJPEG(inputPath, outputPath, quality)
	case "png":
		return compressPNG(inputPath, outputPath, quality)
	case "pdf":
		return compressPDF(inputPath, outputPath)
	case "docx":
		return compressDOCX(inputPath, outputPath)
	default:
		return copyFile(inputPath, outputPath)
	}
}

func compressJPEG(inputPath, outputPath string, quality int) error {
	img, err := decodeImage(inputPath)
	if err != nil {
		return err
	}

	return writeFile(outputPath, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(quality)})
	})
}

func compressPNG(inputPath, outputPath string, quality int) error {
	img, err := decodeImage(inputPath)
	if err != nil {
		return err
	}

	if quality < lowQualityThreshold {
		paletted := image.NewPaletted(img.Bounds(), adaptivePalette(img, maxPaletteColors))
		draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, img.Bounds().Min)
		img = paletted
	}

	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	return writeFile(outputPath, func(w io.Writer) error {
		return encoder.Encode(w, img)
	})
}

var disablePDFConfigDir sync.Once

// compressPDF rewrites the document keeping only reachable objects, with shared
// resources deduplicated and objects packed into compressed object streams.
// The rewrite is lossless, so quality does not apply.
func compressPDF(inputPath, outputPath string) error {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	if err := api.OptimizeFile(inputPath, outputPath, conf); err != nil {
		return fmt.Errorf("optimize pdf: %w", err)
	}
	return nil
}

// compressDOCX re-packs the document archive at the best deflate level.
func compressDOCX(inputPath, outputPath string) error {
	reader, err := zip.OpenReader(inputPath)
	if err != nil {
		return fmt.Errorf("open document archive: %w", err)
	}
	defer reader.Close()

	return writeFile(outputPath, func(w io.Writer) error {
		writer := zip.NewWriter(w)
		writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})

		for _, entry := range reader.File {
			if err := copyZipEntry(writer, entry); err != nil {
				return fmt.Errorf("copy %s: %w", entry.Name, err)
			}
		}

		return writer.Close()
	})
}

func copyZipEntry(writer *zip.Writer, entry *zip.File) error {
	header := &zip.FileHeader{
		Name:     entry.Name,
		Comment:  entry.Comment,
		Method:   zip.Deflate,
		Modified: entry.Modified,
	}
	header.SetMode(entry.Mode())
	if entry.FileInfo().IsDir() {
		header.Method = zip.Store
	}

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return err
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func copyFile(inputPath, outputPath string) error {
	src, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	return writeFile(outputPath, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}

func writeFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func clampQuality(quality int) int {
	if quality < 1 {
		return 1
	}
	if quality > 100 {
		return 100
	}
	return quality
}

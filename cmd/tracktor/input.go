package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/pkg/errors"
)

// Single JSON line could carry a few hundred embeddings
const maxLineSize = 16 << 20

type detectionRecord struct {
	// xmin, ymin, xmax, ymax
	Box     [4]float64 `json:"box"`
	Score   float64    `json:"score"`
	Feature []float32  `json:"feature,omitempty"`
}

type frameRecord struct {
	Frame      int               `json:"frame"`
	Image      string            `json:"image,omitempty"`
	Detections []detectionRecord `json:"detections"`
}

// frameReader decodes JSON-lines detections file frame by frame
type frameReader struct {
	scanner    *bufio.Scanner
	imagesDir  string
	loadImages bool
	line       int
}

func newFrameReader(r io.Reader, imagesDir string, loadImages bool) *frameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &frameReader{
		scanner:    scanner,
		imagesDir:  imagesDir,
		loadImages: loadImages,
	}
}

// Next returns the next frame. io.EOF is returned when input is exhausted
func (reader *frameReader) Next() (frameRecord, mot.Frame, error) {
	for reader.scanner.Scan() {
		reader.line++
		data := bytes.TrimSpace(reader.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var record frameRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return frameRecord{}, mot.Frame{}, errors.Wrapf(err, "line %d", reader.line)
		}
		frame := mot.Frame{
			Detections: make([]mot.Detection, 0, len(record.Detections)),
		}
		for _, det := range record.Detections {
			frame.Detections = append(frame.Detections, mot.NewDetection(det.Box[0], det.Box[1], det.Box[2], det.Box[3], det.Score, det.Feature))
		}
		if reader.loadImages && record.Image != "" {
			img, err := reader.loadImage(record.Image)
			if err != nil {
				return frameRecord{}, mot.Frame{}, errors.Wrapf(err, "line %d", reader.line)
			}
			frame.Image = img
		}
		return record, frame, nil
	}
	if err := reader.scanner.Err(); err != nil {
		return frameRecord{}, mot.Frame{}, errors.Wrap(err, "can't read input")
	}
	return frameRecord{}, mot.Frame{}, io.EOF
}

func (reader *frameReader) loadImage(name string) (image.Image, error) {
	path := name
	if !filepath.IsAbs(path) && reader.imagesDir != "" {
		path = filepath.Join(reader.imagesDir, path)
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "can't open image")
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode image %s", path)
	}
	return img, nil
}

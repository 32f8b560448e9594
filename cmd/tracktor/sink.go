package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/pkg/errors"
)

// trackSink consumes active tracks frame by frame
type trackSink interface {
	WriteFrame(frame int, tracks []mot.TrackOutput) error
	Close() error
}

// csvSink writes "frame,id,xmin,ymin,xmax,ymax,score" rows
type csvSink struct {
	writer *csv.Writer
	closer io.Closer
}

func newCSVSink(path string) (*csvSink, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrap(err, "can't create CSV file")
		}
		out = file
		closer = file
	}
	return newCSVSinkTo(out, closer)
}

// newCSVSinkTo writes header immediately. closer (could be nil) is closed when header can't be written
func newCSVSinkTo(out io.Writer, closer io.Closer) (*csvSink, error) {
	sink := &csvSink{
		writer: csv.NewWriter(out),
		closer: closer,
	}
	err := sink.writer.Write([]string{"frame", "id", "xmin", "ymin", "xmax", "ymax", "score"})
	if err == nil {
		sink.writer.Flush()
		err = sink.writer.Error()
	}
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, errors.Wrap(err, "can't write CSV header")
	}
	return sink, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (sink *csvSink) WriteFrame(frame int, tracks []mot.TrackOutput) error {
	for _, track := range tracks {
		xmin, ymin, xmax, ymax := track.BBox.Corners()
		row := []string{
			strconv.Itoa(frame),
			strconv.FormatInt(track.ID, 10),
			formatFloat(xmin),
			formatFloat(ymin),
			formatFloat(xmax),
			formatFloat(ymax),
			formatFloat(track.Score),
		}
		if err := sink.writer.Write(row); err != nil {
			return errors.Wrap(err, "can't write CSV row")
		}
	}
	return nil
}

func (sink *csvSink) Close() error {
	sink.writer.Flush()
	err := sink.writer.Error()
	if sink.closer != nil {
		if closeErr := sink.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// multiSink fans frames out to several sinks
type multiSink []trackSink

func (sinks multiSink) WriteFrame(frame int, tracks []mot.TrackOutput) error {
	for _, sink := range sinks {
		if err := sink.WriteFrame(frame, tracks); err != nil {
			return err
		}
	}
	return nil
}

func (sinks multiSink) Close() error {
	var first error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

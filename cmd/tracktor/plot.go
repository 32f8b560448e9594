package main

import (
	"fmt"
	"sort"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Legend becomes unreadable beyond this
const maxLegendEntries = 12

// plotSink accumulates track centers and renders trajectories into PNG on Close
type plotSink struct {
	path         string
	trajectories map[int64]plotter.XYs
}

func newPlotSink(path string) *plotSink {
	return &plotSink{
		path:         path,
		trajectories: make(map[int64]plotter.XYs),
	}
}

func (sink *plotSink) WriteFrame(frame int, tracks []mot.TrackOutput) error {
	for _, track := range tracks {
		center := track.BBox.Center()
		// Image Y axis points down
		sink.trajectories[track.ID] = append(sink.trajectories[track.ID], plotter.XY{X: center.X, Y: -center.Y})
	}
	return nil
}

func (sink *plotSink) Close() error {
	p := plot.New()
	p.Title.Text = "Track trajectories"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "-y (px)"

	ids := make([]int64, 0, len(sink.trajectories))
	for id := range sink.trajectories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		line, err := plotter.NewLine(sink.trajectories[id])
		if err != nil {
			return errors.Wrapf(err, "track %d", id)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		if len(ids) <= maxLegendEntries {
			p.Legend.Add(fmt.Sprintf("track %d", id), line)
		}
	}
	p.Legend.Top = true
	if err := p.Save(10*vg.Inch, 6*vg.Inch, sink.path); err != nil {
		return errors.Wrap(err, "save trajectories plot")
	}
	return nil
}

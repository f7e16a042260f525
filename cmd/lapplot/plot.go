package main

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// series is one plotted quantity.
type series struct {
	name  string
	title string
	ylab  string
	value func(telemetry.Record) float64
}

var timeSeries = []series{
	{"lat_err", "Lateral error", "m", func(r telemetry.Record) float64 { return r.LatErr }},
	{"steer_angle", "Steering angle", "deg", func(r telemetry.Record) float64 { return r.SteerAngle }},
	{"target_steer", "Commanded steering", "deg", func(r telemetry.Record) float64 { return r.TargetSteer }},
	{"speed", "Speed", "m/s", func(r telemetry.Record) float64 { return r.Speed }},
	{"line_pos", "Line position", "pixel", func(r telemetry.Record) float64 { return r.LinePos }},
}

var lapColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

// lap is the records of one lap file.
type lap struct {
	index   int
	records []telemetry.Record
}

// renderAll writes one image per series, one scan waterfall per lap and the path plot
// into outDir and returns the written file names.
func renderAll(laps []lap, outDir, format string) ([]string, error) {
	var files []string
	for _, s := range timeSeries {
		p := plot.New()
		p.Title.Text = s.title
		p.X.Label.Text = "t (s)"
		p.Y.Label.Text = s.ylab
		for i, l := range laps {
			pts := make(plotter.XYs, 0, len(l.records))
			for _, r := range l.records {
				pts = append(pts, plotter.XY{X: r.T, Y: s.value(r)})
			}
			if err := addLine(p, pts, i, l.index); err != nil {
				return files, err
			}
		}
		file := filepath.Join(outDir, s.name+"."+format)
		if err := save(p, file); err != nil {
			return files, err
		}
		files = append(files, file)
	}

	for _, l := range laps {
		file, err := renderWaterfall(l, outDir, format)
		if err != nil {
			return files, err
		}
		if file != "" {
			files = append(files, file)
		}
	}

	file, err := renderPath(laps, outDir, format)
	if err != nil {
		return files, err
	}
	return append(files, file), nil
}

// greys is a black to white palette for scan intensities.
type greys int

func (g greys) Colors() []color.Color {
	out := make([]color.Color, int(g))
	for i := range out {
		v := uint8(255 * i / (int(g) - 1))
		out[i] = color.Gray{Y: v}
	}
	return out
}

var _ palette.Palette = greys(0)

// scanGrid lays the scans of one lap out over (t, pixel index).
type scanGrid struct {
	records []telemetry.Record
	width   int
}

func (g scanGrid) Dims() (c, r int) { return len(g.records), g.width }
func (g scanGrid) X(c int) float64  { return g.records[c].T }
func (g scanGrid) Y(r int) float64  { return float64(r) }

func (g scanGrid) Z(c, r int) float64 {
	scan := g.records[c].LineScan
	if r < len(scan) {
		return float64(scan[r])
	}
	return 0
}

// renderWaterfall draws the line scans of one lap as a greyscale image over time with
// the detected line position on top. Laps with fewer than two scans are skipped.
func renderWaterfall(l lap, outDir, format string) (string, error) {
	width := lo.Max(lo.Map(l.records, func(r telemetry.Record, _ int) int { return len(r.LineScan) }))
	if len(l.records) < 2 || width < 2 {
		return "", nil
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Line scan, lap %d", l.index)
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "pixel"

	hm := plotter.NewHeatMap(scanGrid{records: l.records, width: width}, greys(256))
	hm.Min, hm.Max = 0, 255
	p.Add(hm)

	pts := make(plotter.XYs, 0, len(l.records))
	for _, r := range l.records {
		pts = append(pts, plotter.XY{X: r.T, Y: r.LinePos})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("lap %d: %w", l.index, err)
	}
	line.Color = lapColors[3]
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("line_pos", line)

	file := filepath.Join(outDir, fmt.Sprintf("linescan_lap%d.%s", l.index, format))
	return file, save(p, file)
}

// renderPath draws the ground truth path, shaded darker where the steering angle is larger.
// It is only meaningful when the run logged positions.
func renderPath(laps []lap, outDir, format string) (string, error) {
	p := plot.New()
	p.Title.Text = "Path (shade: |steer_angle|)"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	var records []telemetry.Record
	for _, l := range laps {
		records = append(records, l.records...)
	}
	if len(records) > 0 {
		pts := make(plotter.XYs, 0, len(records))
		for _, r := range records {
			pts = append(pts, plotter.XY{X: r.X, Y: r.Y})
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return "", err
		}
		maxSteer := lo.Max(lo.Map(records, func(r telemetry.Record, _ int) float64 { return math.Abs(r.SteerAngle) }))
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			shade := 0.0
			if maxSteer > 0 {
				shade = math.Abs(records[i].SteerAngle) / maxSteer
			}
			return draw.GlyphStyle{
				Color:  color.Gray{Y: uint8(220 * (1 - shade))},
				Radius: vg.Points(1.5),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}
	file := filepath.Join(outDir, "path."+format)
	return file, save(p, file)
}

func addLine(p *plot.Plot, pts plotter.XYs, i, index int) error {
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("lap %d: %w", index, err)
	}
	line.Color = lapColors[i%len(lapColors)]
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("lap %d", index), line)
	return nil
}

func save(p *plot.Plot, file string) error {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}

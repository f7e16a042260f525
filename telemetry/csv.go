package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ErrExists is returned when the first lap file exists and overwriting is off.
var ErrExists = errors.New("telemetry file exists")

var (
	nearColumns = []string{"t", "x", "y", "linescan", "line_pos"}
	farColumns  = []string{"linescan_far", "line_pos_far"}
	tailColumns = []string{"speed", "lat_err", "int_err", "target_steer", "steer_angle", "lap"}
)

// CSVSink writes <base>_lap<N>.csv files, one per lap. Lap 0 is the run-up before
// the first finish crossing.
type CSVSink struct {
	base    string
	far     bool
	lap     int
	rows    int
	file    *os.File
	w       *csv.Writer
	columns []string
}

// LapFile is the file name of one lap stream.
func LapFile(base string, lap int) string {
	return fmt.Sprintf("%s_lap%d.csv", base, lap)
}

// NewCSVSink opens <base>_lap0.csv. With overwrite off it refuses to start when that
// file exists, before the simulation is touched. far adds the second camera columns.
func NewCSVSink(base string, overwrite, far bool) (*CSVSink, error) {
	first := LapFile(base, 0)
	if !overwrite {
		if _, err := os.Stat(first); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, first)
		}
	}
	s := &CSVSink{base: base, far: far}
	s.columns = append(s.columns, nearColumns...)
	if far {
		s.columns = append(s.columns, farColumns...)
	}
	s.columns = append(s.columns, tailColumns...)
	if err := s.open(0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) open(lap int) error {
	f, err := os.Create(LapFile(s.base, lap))
	if err != nil {
		return err
	}
	s.file, s.w, s.lap, s.rows = f, csv.NewWriter(f), lap, 0
	return s.w.Write(s.columns)
}

func (s *CSVSink) flushClose() error {
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := errors.Join(s.w.Error(), s.file.Close())
	log.Debugf("closed %s (%d rows)", LapFile(s.base, s.lap), s.rows)
	s.file, s.w = nil, nil
	return err
}

func (s *CSVSink) Write(r Record) error {
	if s.w == nil {
		return os.ErrClosed
	}
	row := []string{
		formatFloat(r.T), formatFloat(r.X), formatFloat(r.Y),
		FormatScan(r.LineScan), formatFloat(r.LinePos),
	}
	if s.far {
		row = append(row, FormatScan(r.FarScan), formatFloat(r.FarLinePos))
	}
	row = append(row,
		formatFloat(r.Speed), formatFloat(r.LatErr), formatFloat(r.IntErr),
		formatFloat(r.TargetSteer), formatFloat(r.SteerAngle), strconv.Itoa(r.Lap),
	)
	s.rows++
	return s.w.Write(row)
}

func (s *CSVSink) Rotate(lap int) error {
	if err := s.flushClose(); err != nil {
		return err
	}
	return s.open(lap)
}

func (s *CSVSink) Close() error {
	return s.flushClose()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatScan renders a scan as "[a, b, ...]".
func FormatScan(scan []int) string {
	return "[" + strings.Join(lo.Map(scan, func(v int, _ int) string { return strconv.Itoa(v) }), ", ") + "]"
}

// ParseScan is the inverse of FormatScan.
func ParseScan(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad scan sample %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadLapFile loads a lap file written by CSVSink. Unknown columns are ignored so
// files from older runs still load.
func ReadLapFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	records := make([]Record, 0, len(rows)-1)
	for line, row := range rows[1:] {
		var r Record
		var errs []error
		num := func(name string, dst *float64) {
			if i, ok := index[name]; ok {
				v, err := strconv.ParseFloat(row[i], 64)
				errs = append(errs, err)
				*dst = v
			}
		}
		scan := func(name string, dst *[]int) {
			if i, ok := index[name]; ok {
				v, err := ParseScan(row[i])
				errs = append(errs, err)
				*dst = v
			}
		}
		num("t", &r.T)
		num("x", &r.X)
		num("y", &r.Y)
		scan("linescan", &r.LineScan)
		num("line_pos", &r.LinePos)
		scan("linescan_far", &r.FarScan)
		num("line_pos_far", &r.FarLinePos)
		num("speed", &r.Speed)
		num("lat_err", &r.LatErr)
		num("int_err", &r.IntErr)
		num("target_steer", &r.TargetSteer)
		num("steer_angle", &r.SteerAngle)
		if i, ok := index["lap"]; ok {
			v, err := strconv.Atoi(row[i])
			errs = append(errs, err)
			r.Lap = v
		}
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Command lapplot renders the per-lap telemetry written by a run.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
)

var (
	csvFile = flag.String("csvfile", "car_data", "csv base name of the run")
	outDir  = flag.String("out", "plots", "output directory")
	format  = flag.String("format", "png", "image format (png, svg, pdf)")
	skipRun = flag.Bool("skip_runup", true, "leave out lap 0, the run-up to the first finish crossing")

	log = logrus.WithField("module", "lapplot")
)

var lapFilePattern = regexp.MustCompile(`_lap(\d+)\.csv$`)

// loadLaps reads every <base>_lap<N>.csv in lap order.
func loadLaps(base string, skipRunUp bool) ([]lap, error) {
	paths, err := filepath.Glob(base + "_lap*.csv")
	if err != nil {
		return nil, err
	}
	var laps []lap
	for _, path := range paths {
		m := lapFilePattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		if index == 0 && skipRunUp {
			continue
		}
		records, err := telemetry.ReadLapFile(path)
		if err != nil {
			return nil, err
		}
		laps = append(laps, lap{index: index, records: records})
	}
	slices.SortFunc(laps, func(a, b lap) int { return a.index - b.index })
	if len(laps) == 0 {
		return nil, fmt.Errorf("no lap files for %s", base)
	}
	return laps, nil
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})

	laps, err := loadLaps(*csvFile, *skipRun)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	files, err := renderAll(laps, *outDir, *format)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	for _, f := range files {
		log.Infof("wrote %s", f)
	}
}

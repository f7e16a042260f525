package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/kinematic"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/remote"
	"github.com/tsinghua-fib-lab/linecar-sim/task"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

var (
	// empty runs the built-in defaults
	configPath = flag.String("config", "", "config file path (empty means built-in defaults)")
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// clock Now RPC
	listenAddr = flag.String("listen", "", "clock RPC listening address, e.g. :51102 (empty means disabled)")

	// per-run overrides of the config file
	simAddr          = flag.String("sim", "", "simulator bridge base URL (empty means the built-in kinematic simulator)")
	laps             = flag.Int("laps", 1, "number of laps to complete, 0 runs until maxtime")
	velocity         = flag.Float64("velocity", 1.0, "target speed in m/s")
	maxTime          = flag.Float64("maxtime", 60, "simulation seconds before the run is cut")
	csvFile          = flag.String("csvfile", "car_data", "csv base name, files are <csvfile>_lap<N>.csv (empty disables)")
	csvFileOverwrite = flag.Bool("csvfile_overwrite", true, "overwrite existing csv files without warning")
	synchronous      = flag.Bool("synchronous", true, "step the simulator in lockstep with the controller")
	restart          = flag.Bool("restart", false, "stop a running simulation before starting")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "log level (trace debug info warn error critical off)")

	log = logrus.WithField("module", "linecar")
)

// loadConfig reads -config or -config-data on top of the defaults, then applies the
// override flags that were set explicitly.
func loadConfig() (config.Config, error) {
	var file []byte
	var err error
	if *configPath != "" {
		if file, err = os.ReadFile(*configPath); err != nil {
			return config.Config{}, err
		}
	} else if *configData != "" {
		if file, err = base64.StdEncoding.DecodeString(*configData); err != nil {
			return config.Config{}, err
		}
	}
	c, err := config.Load(file)
	if err != nil {
		return c, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sim":
			c.Simulator.Address = *simAddr
		case "laps":
			c.Run.Laps = *laps
		case "velocity":
			c.Run.Speed = *velocity
		case "maxtime":
			c.Run.MaxTime = *maxTime
		case "csvfile":
			c.Telemetry.CSV = *csvFile
		case "csvfile_overwrite":
			c.Telemetry.Overwrite = *csvFileOverwrite
		case "synchronous":
			c.Simulator.Synchronous = *synchronous
		case "restart":
			c.Simulator.Restart = *restart
		}
	})
	return c, c.Validate()
}

func newSimulator(c config.Config) sim.Simulator {
	if c.Simulator.Address == "" {
		log.Info("using the built-in kinematic simulator")
		return kinematic.New(c)
	}
	timeout := time.Duration(c.Simulator.RequestTimeout * float64(time.Second))
	log.Infof("connecting to simulator at %s", c.Simulator.Address)
	return remote.NewClient(http.DefaultClient, c.Simulator.Address, timeout)
}

func newSink(ctx context.Context, c config.Config) (telemetry.Sink, error) {
	var sinks telemetry.Multi
	if c.Telemetry.CSV != "" {
		s, err := telemetry.NewCSVSink(c.Telemetry.CSV, c.Telemetry.Overwrite, len(c.Cameras) > 1)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if c.Telemetry.Mongo != nil {
		s, err := telemetry.NewMongoSink(ctx, *c.Telemetry.Mongo)
		if err != nil {
			return nil, errors.Join(err, sinks.Close())
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}

	c, err := loadConfig()
	if err != nil {
		log.Panicf("config load err: %v", err)
	}
	log.Infof("%+v", c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the overwrite guard runs before the simulator is touched
	sink, err := newSink(ctx, c)
	if err != nil {
		log.Panicf("telemetry init err: %v", err)
	}
	t := task.NewContext(config.NewRuntimeConfig(c), newSimulator(c), sink)

	if *listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(t.Clock().NewHandler())
		srv := &http.Server{Addr: *listenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("clock rpc: %v", err)
			}
		}()
		defer srv.Close()
	}

	res, err := t.Run(ctx)
	if err != nil {
		log.Errorf("run %s failed: %v", t.RunID(), err)
		stop()
		os.Exit(1)
	}
	log.Infof("run %s finished: %s", t.RunID(), res.Reason)
}

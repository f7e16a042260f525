// Command kinesim serves the built-in kinematic simulator over connect, so the
// controller can be run against it as a separate process with -sim.
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
	"github.com/tsinghua-fib-lab/linecar-sim/sim/kinematic"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/remote"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

var (
	listenAddr = flag.String("listen", ":51200", "listening address")
	configPath = flag.String("config", "", "config file path (empty means built-in defaults)")
	configData = flag.String("config-data", "", "config file base64 encoded data")
	logLevel   = flag.String("log.level", "info", "log level (trace debug info warn error)")

	log = logrus.WithField("module", "kinesim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Panicf("log.level: %v", err)
	}
	logrus.SetLevel(level)

	var file []byte
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
	}
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}
	c, err := config.Load(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}

	s := kinematic.New(c)
	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(s))
	mux.Handle(s.Clock().NewHandler())
	srv := &http.Server{Addr: *listenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("kinematic simulator listening on %s (radius %.2f m, dt %.3f s)", *listenAddr, c.Kinematic.Radius, c.Kinematic.DT)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/statsrelay/relaycore/clock"
	"github.com/statsrelay/relaycore/config"
	"github.com/statsrelay/relaycore/entropy"
	"github.com/statsrelay/relaycore/listener"
	"github.com/statsrelay/relaycore/logsink"
	"github.com/statsrelay/relaycore/metrics"
	"github.com/statsrelay/relaycore/randsource"
	"github.com/statsrelay/relaycore/relay"
	"github.com/statsrelay/relaycore/scheduler"
)

func main() {
	var flagConfigFile, flagServiceAddress, flagProtocol string
	flag.StringVar(&flagConfigFile, "config", "./relaycore.toml", "Path to the sampler/elide tuning file")
	flag.StringVar(&flagServiceAddress, "service-address", ":8125", "Address to listen for StatsD lines on")
	flag.StringVar(&flagProtocol, "protocol", "udp", "Listener protocol: udp or tcp")
	flag.Parse()

	log := logsink.New(logrus.StandardLogger())

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Errorf("main: loading config: %v", err)
		os.Exit(1)
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Errorf("main: starting scheduler: %v", err)
		os.Exit(1)
	}
	defer sched.Shutdown()

	sysClock := clock.System{}

	var instanceSalt uint64
	if seed, err := entropy.URandom{}.Gather(8); err == nil {
		for _, b := range seed {
			instanceSalt = instanceSalt<<8 | uint64(b)
		}
	} else {
		log.Errorf("main: gathering entropy for PRNG salt: %v, falling back to zero salt", err)
	}
	rng := randsource.New(sysClock, instanceSalt)

	record := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	r, err := relay.New(cfg, sysClock, rng, log, sched, record, func(line []byte) {
		os.Stdout.Write(line)
		os.Stdout.Write([]byte("\n"))
	})
	if err != nil {
		log.Errorf("main: building relay: %v", err)
		os.Exit(1)
	}
	defer r.Stop()

	lcfg := listener.DefaultConfig()
	lcfg.ServiceAddress = flagServiceAddress
	lcfg.Protocol = flagProtocol

	lis := listener.New(lcfg, log, r)
	if err := lis.Start(); err != nil {
		log.Errorf("main: starting listener: %v", err)
		os.Exit(1)
	}

	log.Infof("main: relaycore listening on %s/%s", flagServiceAddress, flagProtocol)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Infof("main: shutting down")
	lis.Stop()
}

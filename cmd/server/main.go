package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/app"
	"github.com/aosanya/agentforge/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentforge %s (built %s, commit %s)\n", version, buildTime, gitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	app.Version = version

	log.WithFields(log.Fields{
		"version":     version,
		"environment": cfg.Environment(),
		"port":        cfg.Server.Port,
	}).Info("starting agentforge")

	if err := app.New(cfg).Run(); err != nil {
		log.WithError(err).Fatal("agentforge exited with error")
	}
}

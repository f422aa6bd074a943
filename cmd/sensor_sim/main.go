package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/fusion_tracker/internal/app"
)

func main() {
	outdoorAddr := flag.String("outdoor", ":9001", "listen address for the fake outdoor GPS endpoint")
	indoorAddr := flag.String("indoor", ":9002", "listen address for the fake indoor IMU endpoint")
	flag.Parse()

	log.Println("starting fusion-tracker sensor simulator (fake outdoor + indoor endpoints)")

	if err := app.RunSensorSim(*outdoorAddr, *indoorAddr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

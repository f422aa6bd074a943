package app

import (
	"bufio"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/fusion_tracker/internal/config"
	"github.com/relabs-tech/fusion_tracker/internal/telemetry"
	"github.com/relabs-tech/fusion_tracker/internal/tracking"
)

// runSerialSource feeds the session from a local NMEA GPS instead of the
// HTTP outdoor endpoint. Only valid RMC sentences become fixes; noisy or
// partial lines are skipped.
func runSerialSource(stop <-chan struct{}, session *tracking.Session, epoch uint64) {
	cfg := config.Get()

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		log.Printf("tracker: GPS serial open: %v", err)
		return
	}
	defer port.Close()
	log.Printf("tracker: GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	for {
		select {
		case <-stop:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("tracker: GPS read error: %v", err)
			return
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		if sentence.DataType() != nmea.TypeRMC {
			continue
		}
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			continue
		}

		session.SubmitGPSFix(epoch, telemetry.Fix{Lat: m.Latitude, Lon: m.Longitude})
	}
}

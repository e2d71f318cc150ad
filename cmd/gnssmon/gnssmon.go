// gnssmon powers up the modem's GNSS subsystem and prints position
// reports as they arrive, optionally as NMEA GGA sentences.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sim7000-go/sim7000"
	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/gnss"
	"github.com/sim7000-go/sim7000/serial"
	"github.com/sim7000-go/sim7000/trace"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	asNmea := flag.Bool("nmea", false, "print fixes as NMEA GGA sentences")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()

	port, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()
	var mio io.ReadWriter = port
	if *verbose {
		mio = trace.New(port)
	}

	m := sim7000.New(mio)
	defer m.Close()

	ctx := context.Background()
	if err := m.Wake(ctx); err != nil {
		log.Fatal(err)
	}

	g, err := m.ClaimGNSS(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	for {
		report, err := g.Report(ctx)
		if err != nil {
			log.Fatal(err)
		}
		switch report.Quality {
		case atproto.GnssFix:
			if *asNmea {
				gga, err := gnss.GGA(report, time.Now())
				if err != nil {
					log.Println(err)
					continue
				}
				fmt.Println(gga.String())
				continue
			}
			fmt.Printf("fix: lat=%.6f lon=%.6f alt=%.1fm sats=%d\n",
				report.Latitude, report.Longitude, report.Altitude, report.SatGnssUsed)
		case atproto.GnssNoFix:
			fmt.Printf("no fix (%d satellites in view)\n", report.SatGpsInView)
		default:
			fmt.Println("gnss not enabled")
		}
	}
}

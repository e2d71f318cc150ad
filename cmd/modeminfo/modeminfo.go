// modeminfo collects and displays information related to the modem and
// its current configuration.
//
// This serves as an example of how to interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sim7000-go/sim7000"
	"github.com/sim7000-go/sim7000/serial"
	"github.com/sim7000-go/sim7000/trace"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	timeout := flag.Duration("t", 10*time.Second, "per-query timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	port, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
	defer port.Close()
	var mio io.ReadWriter = port
	if *verbose {
		mio = trace.New(port)
	}

	m := sim7000.New(mio)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := m.Wake(ctx); err != nil {
		log.Println(err)
		return
	}

	queries := []struct {
		name string
		run  func(context.Context) (any, error)
	}{
		{"signal quality", func(ctx context.Context) (any, error) { return m.SignalQuality(ctx) }},
		{"iccid", func(ctx context.Context) (any, error) { return m.ICCID(ctx) }},
		{"imei", func(ctx context.Context) (any, error) { return m.IMEI(ctx) }},
		{"firmware", func(ctx context.Context) (any, error) { return m.FirmwareVersion(ctx) }},
		{"system info", func(ctx context.Context) (any, error) { return m.SystemInfo(ctx) }},
		{"operator", func(ctx context.Context) (any, error) { return m.OperatorInfo(ctx) }},
	}
	for _, q := range queries {
		qctx, qcancel := context.WithTimeout(context.Background(), *timeout)
		info, err := q.run(qctx)
		qcancel()
		if err != nil {
			fmt.Printf("%s: %s\n", q.name, err)
			continue
		}
		fmt.Printf("%s: %+v\n", q.name, info)
	}
}

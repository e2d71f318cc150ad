// tcpecho activates the modem, opens a TCP connection to an echo server,
// writes a message, and reads it back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sim7000-go/sim7000"
	"github.com/sim7000-go/sim7000/config"
	"github.com/sim7000-go/sim7000/serial"
	"github.com/sim7000-go/sim7000/trace"
)

func main() {
	cfgPath := flag.String("c", "modem.toml", "path to config file")
	host := flag.String("host", "tcpbin.com", "echo server host")
	port := flag.Uint("port", 4242, "echo server port")
	msg := flag.String("m", "\nFOOBARBAZBOPSHOP\n", "message to echo")
	timeout := flag.Duration("t", 5*time.Minute, "overall timeout")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	reg, err := cfg.Registration()
	if err != nil {
		log.Fatal(err)
	}

	sp, err := serial.New(serial.WithPort(cfg.Device.Port), serial.WithBaud(cfg.Device.Baud))
	if err != nil {
		log.Fatal(err)
	}
	defer sp.Close()
	var mio io.ReadWriter = sp
	if *verbose {
		mio = trace.New(sp)
	}

	m := sim7000.New(mio,
		sim7000.WithRegistrationConfig(reg),
		sim7000.WithAPN(cfg.APNConfig()),
	)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := m.Activate(ctx); err != nil {
		log.Fatal(err)
	}
	defer m.Deactivate(context.Background())

	stream, err := m.ConnectTCP(ctx, *host, uint16(*port))
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	payload := []byte(*msg)
	if _, err := stream.Write(ctx, payload); err != nil {
		log.Fatal(err)
	}

	buf := make([]byte, len(payload))
	read := 0
	for read < len(payload) {
		n, err := stream.Read(ctx, buf[read:])
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			log.Fatal("connection closed before the full echo arrived")
		}
		read += n
	}
	fmt.Printf("echoed %d bytes: %q\n", read, buf)
}

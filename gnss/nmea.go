package gnss

import (
	"fmt"
	"math"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
)

// ErrNoFix is returned by the NMEA converters when the report does not
// carry a position fix.
var ErrNoFix = errors.New("gnss: report has no fix")

// GGA renders a fix report as an NMEA GGA sentence, timestamped at, and
// returns it parsed back through go-nmea so downstream consumers get the
// library's standard sentence type (and the checksum is known-good).
// The sim7000's native +UGNSINF shape is proprietary CSV; most GNSS
// tooling wants NMEA.
func GGA(r atproto.GnssReport, at time.Time) (nmea.GGA, error) {
	if r.Quality != atproto.GnssFix {
		return nmea.GGA{}, ErrNoFix
	}
	lat, latHemi := degreesMinutes(r.Latitude, "N", "S")
	lon, lonHemi := degreesMinutes(r.Longitude, "E", "W")
	body := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,%02d,%.1f,%.1f,M,,M,,",
		at.UTC().Format("150405.000"),
		lat, latHemi, lon, lonHemi,
		r.SatGnssUsed, r.HDOP, r.Altitude)
	s, err := nmea.Parse("$" + body + "*" + nmea.Checksum(body))
	if err != nil {
		return nmea.GGA{}, errors.Wrap(err, "gnss: built an invalid GGA sentence")
	}
	gga, ok := s.(nmea.GGA)
	if !ok {
		return nmea.GGA{}, errors.Errorf("gnss: expected GGA, parsed %s", s.DataType())
	}
	return gga, nil
}

// RMC renders a fix report as an NMEA RMC sentence, timestamped at.
// Speed over ground converts from the modem's km/h to RMC's knots.
func RMC(r atproto.GnssReport, at time.Time) (nmea.RMC, error) {
	if r.Quality != atproto.GnssFix {
		return nmea.RMC{}, ErrNoFix
	}
	lat, latHemi := degreesMinutes(r.Latitude, "N", "S")
	lon, lonHemi := degreesMinutes(r.Longitude, "E", "W")
	knots := r.SpeedOverGround / 1.852
	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%.1f,%.1f,%s,,,A",
		at.UTC().Format("150405.000"),
		lat, latHemi, lon, lonHemi,
		knots, r.CourseOverGround,
		at.UTC().Format("020106"))
	s, err := nmea.Parse("$" + body + "*" + nmea.Checksum(body))
	if err != nil {
		return nmea.RMC{}, errors.Wrap(err, "gnss: built an invalid RMC sentence")
	}
	rmc, ok := s.(nmea.RMC)
	if !ok {
		return nmea.RMC{}, errors.Errorf("gnss: expected RMC, parsed %s", s.DataType())
	}
	return rmc, nil
}

// degreesMinutes converts signed decimal degrees to the NMEA ddmm.mmmm
// form plus a hemisphere letter.
func degreesMinutes(deg float32, positive, negative string) (string, string) {
	hemi := positive
	d := float64(deg)
	if d < 0 {
		hemi = negative
		d = -d
	}
	whole := math.Floor(d)
	minutes := (d - whole) * 60
	return fmt.Sprintf("%02d%07.4f", int(whole), minutes), hemi
}

package atproto

import (
	"strings"

	"github.com/sim7000-go/sim7000/info"
)

// urcParsers are attempted, in order, before any ResponseCode parser.
var urcParsers = []func(string) (Urc, bool){
	parseRegistration(RegistrationCREG, "+CREG"),
	parseRegistration(RegistrationCGREG, "+CGREG"),
	parseRegistration(RegistrationCEREG, "+CEREG"),
	parseReceiveHeader,
	parseConnectionMessage,
	parseGnssReport,
	parseVoltageWarning,
	parsePowerDown,
	parseReady,
	parseSmsReady,
	parseIncomingConnection,
	parseAppNetworkActive,
	parseGprsDisconnected,
}

// parseRegistration builds a parser for one of the three registration URC
// families. Both the URC form ("+CGREG: <stat>") and the query-response
// form ("+CGREG: <n>,<stat>[,...]") are accepted; the two are
// disambiguated by checking whether field 2 (if present) is purely
// digits: if so, it's the <stat> and field 1 was <n>.
func parseRegistration(source RegistrationSource, prefix string) func(string) (Urc, bool) {
	return func(line string) (Urc, bool) {
		body, ok := strings.CutPrefix(line, prefix+": ")
		if !ok {
			body, ok = strings.CutPrefix(line, prefix)
			if !ok || !strings.HasPrefix(body, ":") {
				return nil, false
			}
			body = strings.TrimSpace(strings.TrimPrefix(body, ":"))
		}
		fields := splitCSV(body)
		if len(fields) == 0 {
			return nil, false
		}

		statField := fields[0]
		if len(fields) > 1 && allDigits(strings.TrimSpace(fields[1])) {
			// query form: "<n>,<stat>[,...]"
			statField = fields[1]
		}

		stat, ok := parseInt(strings.TrimSpace(statField))
		if !ok {
			return nil, false
		}

		return NetworkRegistration{Source: source, Status: registrationStatusFromStat(stat)}, true
	}
}

func registrationStatusFromStat(stat int) RegistrationStatus {
	switch stat {
	case 1:
		return RegisteredHome
	case 2:
		return Searching
	case 3:
		return RegistrationDenied
	case 4:
		return RegistrationUnknown
	case 5:
		return RegisteredRoaming
	default:
		return NotRegistered
	}
}

func parseReceiveHeader(line string) (Urc, bool) {
	const prefix = "+RECEIVE,"
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, prefix), ":")
	connStr, lenStr, ok := strings.Cut(body, ",")
	if !ok {
		return nil, false
	}
	conn, ok := parseInt(connStr)
	if !ok {
		return nil, false
	}
	length, ok := parseInt(lenStr)
	if !ok {
		return nil, false
	}
	return ReceiveHeader{Connection: conn, Length: length}, true
}

func parseConnectionMessage(line string) (Urc, bool) {
	idxStr, rest, ok := strings.Cut(line, ", ")
	if !ok {
		return nil, false
	}
	idx, ok := parseInt(idxStr)
	if !ok {
		return nil, false
	}
	var event ConnectionEvent
	switch rest {
	case "CLOSED":
		event = EventClosed
	case "SEND OK":
		event = EventSendSuccess
	case "SEND FAIL":
		event = EventSendFail
	case "CONNECT OK":
		event = EventConnected
	case "CONNECT FAIL":
		event = EventConnectionFailed
	case "ALREADY CONNECT":
		event = EventAlreadyConnected
	default:
		return nil, false
	}
	return ConnectionMessage{Index: idx, Message: event}, true
}

func parseGnssReport(line string) (Urc, bool) {
	if !info.HasPrefix(line, "+UGNSINF") {
		return nil, false
	}
	fields := splitCSV(info.TrimPrefix(line, "+UGNSINF"))
	if len(fields) < 19 {
		return nil, false
	}
	runStatus := fields[0]
	fixStatus := fields[1]

	if runStatus != "1" {
		return GnssReport{Quality: GnssNotEnabled}, true
	}
	if fixStatus != "1" {
		view, known := parseOptionalUint(fields[14])
		return GnssReport{Quality: GnssNoFix, SatGpsInViewKnown: known && fields[14] != "", SatGpsInView: view}, true
	}

	lat, ok := parseFloat32(fields[3])
	if !ok {
		return nil, false
	}
	lon, ok := parseFloat32(fields[4])
	if !ok {
		return nil, false
	}
	alt, ok := parseFloat32(fields[5])
	if !ok {
		return nil, false
	}
	speed, ok := parseOptionalFloat(fields[6])
	if !ok {
		return nil, false
	}
	course, ok := parseOptionalFloat(fields[7])
	if !ok {
		return nil, false
	}
	hdop, ok := parseOptionalFloat(fields[10])
	if !ok {
		return nil, false
	}
	pdop, ok := parseOptionalFloat(fields[11])
	if !ok {
		return nil, false
	}
	vdop, ok := parseOptionalFloat(fields[12])
	if !ok {
		return nil, false
	}
	gpsInView, ok := parseOptionalUint(fields[14])
	if !ok {
		return nil, false
	}
	gnssUsed, ok := parseOptionalUint(fields[15])
	if !ok {
		return nil, false
	}
	glonassUsed, ok := parseOptionalUint(fields[16])
	if !ok {
		return nil, false
	}
	snr, ok := parseOptionalUint(fields[18])
	if !ok {
		return nil, false
	}

	return GnssReport{
		Quality:            GnssFix,
		Latitude:           lat,
		Longitude:          lon,
		Altitude:           alt,
		SpeedOverGround:    speed,
		CourseOverGround:   course,
		HDOP:               hdop,
		PDOP:               pdop,
		VDOP:               vdop,
		SatGpsInViewCount:  gpsInView,
		SatGnssUsed:        gnssUsed,
		SatGlonassUsed:     glonassUsed,
		SignalToNoiseRatio: snr,
	}, true
}

func parseVoltageWarning(line string) (Urc, bool) {
	reason, message, ok := strings.Cut(line, " ")
	if !ok {
		return nil, false
	}
	// The SIM7000 documentation misspells this as "WARNNING" on some
	// firmware revisions; tolerate both.
	if message != "WARNING" && message != "WARNNING" {
		return nil, false
	}
	switch reason {
	case "UNDER-VOLTAGE":
		return VoltageUnderWarning, true
	case "OVER-VOLTAGE":
		return VoltageOverWarning, true
	}
	return nil, false
}

func parsePowerDown(line string) (Urc, bool) {
	reason, message, ok := strings.Cut(line, " ")
	if !ok || message != "POWER DOWN" {
		return nil, false
	}
	switch reason {
	case "NORMAL":
		return PowerDownNormal, true
	case "UNDER-VOLTAGE":
		return PowerDownUnderVoltage, true
	case "OVER-VOLTAGE":
		return PowerDownOverVoltage, true
	}
	return nil, false
}

func parseReady(line string) (Urc, bool) {
	if line == "RDY" {
		return Ready{}, true
	}
	return nil, false
}

func parseSmsReady(line string) (Urc, bool) {
	if line == "SMS Ready" {
		return SmsReady{}, true
	}
	return nil, false
}

func parseIncomingConnection(line string) (Urc, bool) {
	const prefix = "REMOTE IP: "
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	segs := strings.SplitN(strings.TrimPrefix(line, prefix), ".", 4)
	if len(segs) != 4 {
		return nil, false
	}
	var addr [4]byte
	for i, s := range segs {
		v, ok := parseInt(s)
		if !ok || v < 0 || v > 255 {
			return nil, false
		}
		addr[i] = byte(v)
	}
	return IncomingConnection{RemoteIP: addr}, true
}

func parseAppNetworkActive(line string) (Urc, bool) {
	switch line {
	case "+APP PDP: ACTIVE":
		return AppNetworkActive{Active: true}, true
	case "+APP PDP: DEACTIVE":
		return AppNetworkActive{Active: false}, true
	}
	return nil, false
}

func parseGprsDisconnected(line string) (Urc, bool) {
	if line == "+PDP: DEACT" {
		return GprsDisconnected{}, true
	}
	return nil, false
}

// Classify attempts to parse line as a Urc first, then as a ResponseCode.
// Exactly one of the two return values is non-nil on success; both are nil
// if the line matched nothing recognized, in which case the caller should
// log and drop it.
//
// "CLOSED" and "RDY" lines that duplicate URCs delivered elsewhere through
// other means are still classified normally here; any suppression of
// duplicate delivery is the RxPump's responsibility, not the codec's.
func Classify(line string) (Urc, ResponseCode) {
	for _, p := range urcParsers {
		if u, ok := p(line); ok {
			return u, nil
		}
	}
	for _, p := range responseParsers {
		if r, ok := p(line); ok {
			return nil, r
		}
	}
	return nil, nil
}

package atproto

import (
	"strconv"
	"strings"

	"github.com/sim7000-go/sim7000/info"
)

// responseParsers are attempted, in order, by Classify once every Urc
// parser has failed. The IMEI parser is deliberately last: a bare 15-16
// digit line also matches nothing else, so it must lose to every more
// specific shape.
var responseParsers = []func(string) (ResponseCode, bool){
	parseGenericOk,
	parseSimError,
	parseWritePrompt,
	parseCloseOk,
	parseIpExt,
	parseIccid,
	parseSignalQuality,
	parseSystemInfo,
	parseOperatorInfo,
	parseFwVersion,
	parseNetworkApn,
	parseNetworkTime,
	parseDownloadInfo,
	parseCopyResponse,
	parseXtraStatus,
	parseImei,
}

func parseGenericOk(line string) (ResponseCode, bool) {
	if line == "OK" || line == "SHUT OK" {
		return GenericOk{}, true
	}
	return nil, false
}

func parseSimError(line string) (ResponseCode, bool) {
	switch {
	case line == "ERROR":
		return SimError{Kind: SimErrorGeneric}, true
	case strings.HasPrefix(line, "+CME ERROR:"):
		return SimError{Kind: SimErrorCME, Code: strings.TrimSpace(line[len("+CME ERROR:"):])}, true
	case strings.HasPrefix(line, "+CMS ERROR:"):
		return SimError{Kind: SimErrorCMS, Code: strings.TrimSpace(line[len("+CMS ERROR:"):])}, true
	}
	return nil, false
}

func parseWritePrompt(line string) (ResponseCode, bool) {
	if line == WritePromptText {
		return WritePrompt{}, true
	}
	return nil, false
}

func parseCloseOk(line string) (ResponseCode, bool) {
	const suffix = ", CLOSE OK"
	if !strings.HasSuffix(line, suffix) {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(line, suffix))
	if err != nil {
		return nil, false
	}
	return CloseOk{Connection: n}, true
}

func parseIpExt(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+CIFSREX") {
		return nil, false
	}
	segs := strings.SplitN(info.TrimPrefix(line, "+CIFSREX"), ".", 4)
	if len(segs) != 4 {
		return nil, false
	}
	var addr [4]byte
	for i, s := range segs {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 255 {
			return nil, false
		}
		addr[i] = byte(v)
	}
	return IpExt{Addr: addr}, true
}

// parseIccid matches the bare 20-character ICCID line AT+CCID answers
// with (no prefix): "89" (the telecom MII), 2-digit country code, 2-digit
// issuer, 13-digit account, 1 hex check digit.
func parseIccid(line string) (ResponseCode, bool) {
	trimmed := strings.TrimPrefix(line, "+CCID: ")
	if len(trimmed) != 20 || trimmed[:2] != "89" {
		return nil, false
	}
	country, err := strconv.Atoi(trimmed[2:4])
	if err != nil {
		return nil, false
	}
	issuer, err := strconv.Atoi(trimmed[4:6])
	if err != nil {
		return nil, false
	}
	account := trimmed[6:19]
	if !allDigits(account) {
		return nil, false
	}
	if _, err := strconv.ParseUint(trimmed[19:], 16, 8); err != nil {
		return nil, false
	}
	return Iccid{
		Raw:     trimmed,
		Country: country,
		Issuer:  issuer,
		Account: account,
	}, true
}

func parseSignalQuality(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+CSQ") {
		return nil, false
	}
	rest := info.TrimPrefix(line, "+CSQ")
	rssiStr, berStr, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, false
	}
	rssi, err := strconv.Atoi(rssiStr)
	if err != nil {
		return nil, false
	}
	ber, err := strconv.Atoi(berStr)
	if err != nil {
		return nil, false
	}

	var rssiDbm *int
	switch {
	case rssi == 0:
		v := -115
		rssiDbm = &v
	case rssi >= 1 && rssi <= 1:
		v := -111
		rssiDbm = &v
	case rssi >= 2 && rssi <= 31:
		v := -110 + (rssi-2)*2
		rssiDbm = &v
	case rssi == 99:
		rssiDbm = nil
	default:
		return nil, false
	}

	var strength *float32
	if rssiDbm != nil {
		normalized := float32(*rssiDbm + 115)
		v := 100.0 * (normalized / 63.0)
		strength = &v
	}

	berTable := map[int]float32{
		0: 0.14, 1: 0.28, 2: 0.57, 3: 1.13,
		4: 2.26, 5: 4.53, 6: 9.05, 7: 18.10,
	}
	var quality *float32
	if ber != 99 {
		v, ok := berTable[ber]
		if !ok {
			return nil, false
		}
		quality = &v
	}

	return SignalQuality{SignalStrength: strength, SignalQualityPct: quality}, true
}

func parseSystemInfo(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+CPSI") {
		return nil, false
	}
	return SystemInfo{Raw: info.TrimPrefix(line, "+CPSI")}, true
}

func parseOperatorInfo(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+COPS") {
		return nil, false
	}
	fields := splitCSV(info.TrimPrefix(line, "+COPS"))
	if len(fields) < 1 {
		return nil, false
	}
	info := OperatorInfo{}
	if v, err := strconv.Atoi(fields[0]); err == nil {
		info.Mode = v
	}
	if len(fields) > 1 {
		if v, err := strconv.Atoi(fields[1]); err == nil {
			info.Format = v
		}
	}
	if len(fields) > 2 {
		info.Operator = unquote(fields[2])
	}
	return info, true
}

func parseFwVersion(line string) (ResponseCode, bool) {
	const prefix = "Revision:"
	if strings.HasPrefix(line, prefix) {
		return FwVersion{Version: strings.TrimSpace(strings.TrimPrefix(line, prefix))}, true
	}
	if strings.HasPrefix(line, "+CGMR:") {
		return FwVersion{Version: strings.TrimSpace(strings.TrimPrefix(line, "+CGMR:"))}, true
	}
	return nil, false
}

// parseNetworkApn matches "+CGNAPN: <valid>,"<apn>"".
func parseNetworkApn(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+CGNAPN") {
		return nil, false
	}
	valid, apn, ok := strings.Cut(info.TrimPrefix(line, "+CGNAPN"), ",")
	if !ok {
		return nil, false
	}
	switch valid {
	case "0":
		return NetworkApn{}, true
	case "1":
		return NetworkApn{APN: unquote(apn)}, true
	}
	return nil, false
}

// parseNetworkTime accepts both the AT+CCLK? answer ("+CCLK: "time"") and
// the +CNTP completion line ("+CNTP: <code>[,"time"]"). For +CNTP, code 1
// is success; other codes are network/DNS/timeout failures the caller
// inspects via Code.
func parseNetworkTime(line string) (ResponseCode, bool) {
	if info.HasPrefix(line, "+CCLK") {
		return NetworkTime{Raw: unquote(info.TrimPrefix(line, "+CCLK")), Code: 1}, true
	}
	if !info.HasPrefix(line, "+CNTP") {
		return nil, false
	}
	codeStr, timeStr, hasTime := strings.Cut(info.TrimPrefix(line, "+CNTP"), ",")
	code, ok := parseInt(strings.TrimSpace(codeStr))
	if !ok {
		return nil, false
	}
	nt := NetworkTime{Code: code}
	if hasTime {
		nt.Raw = unquote(strings.TrimSpace(timeStr))
	}
	return nt, true
}

// parseDownloadInfo matches "+HTTPTOFS: <status>[,<length>]".
func parseDownloadInfo(line string) (ResponseCode, bool) {
	if !info.HasPrefix(line, "+HTTPTOFS") {
		return nil, false
	}
	statusStr, lenStr, hasLen := strings.Cut(info.TrimPrefix(line, "+HTTPTOFS"), ",")
	status, ok := parseInt(strings.TrimSpace(statusStr))
	if !ok {
		return nil, false
	}
	info := DownloadInfo{Status: status}
	if hasLen {
		if v, err := strconv.ParseUint(strings.TrimSpace(lenStr), 10, 64); err == nil {
			info.DataLength = v
		}
	}
	return info, true
}

func parseCopyResponse(line string) (ResponseCode, bool) {
	switch line {
	case "+CGNSCPY: 0":
		return CopyResponse{Success: true}, true
	case "+CGNSCPY: 1":
		return CopyResponse{Success: false}, true
	}
	return nil, false
}

func parseXtraStatus(line string) (ResponseCode, bool) {
	rest, ok := strings.CutPrefix(line, "+CGNSXTRA: ")
	if !ok {
		return nil, false
	}
	switch rest {
	case "0":
		return XtraStatus{Outcome: XtraOk}, true
	case "1":
		return XtraStatus{Outcome: XtraFileMissing}, true
	case "2":
		return XtraStatus{Outcome: XtraNotEffective}, true
	}
	return nil, false
}

// parseImei matches a bare 15-16 digit line. Must be attempted last.
func parseImei(line string) (ResponseCode, bool) {
	if len(line) < 15 || len(line) > 16 || !allDigits(line) {
		return nil, false
	}
	return Imei{Number: line}, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

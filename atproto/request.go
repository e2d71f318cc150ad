package atproto

import "fmt"

// Each function below builds the RawCommand for one AT command. They are
// pure formatting: no I/O, no locking; those concerns live in the
// CommandRunner (package modem).

// At is a bare liveness probe, used by tcpconn as well as the front-end.
func At() RawCommand { return Text("AT") }

// SetEcho toggles command echo (ATE0/ATE1).
func SetEcho(on bool) RawCommand {
	if on {
		return Text("ATE1")
	}
	return Text("ATE0")
}

// SetSlowClock configures AT+CSCLK.
func SetSlowClock(enabled bool) RawCommand {
	if enabled {
		return Text("AT+CSCLK=1")
	}
	return Text("AT+CSCLK=0")
}

// SetBaudRate configures AT+IPR.
func SetBaudRate(baud int) RawCommand {
	return Text(fmt.Sprintf("AT+IPR=%d", baud))
}

// SetFlowControl configures AT+IFC. dte/dce are the RTS/CTS flow control
// modes (2 = hardware flow control, per the sim7000 command set).
func SetFlowControl(dte, dce int) RawCommand {
	return Text(fmt.Sprintf("AT+IFC=%d,%d", dte, dce))
}

// ConfigureCMEErrors sets AT+CMEE verbosity (0=disabled, 1=numeric, 2=verbose).
func ConfigureCMEErrors(mode int) RawCommand {
	return Text(fmt.Sprintf("AT+CMEE=%d", mode))
}

// SetNetworkMode configures AT+CNMP (RAT selection).
func SetNetworkMode(mode int) RawCommand {
	return Text(fmt.Sprintf("AT+CNMP=%d", mode))
}

// SetNbMode configures AT+CMNB (Cat-M1 vs NB-IoT preference).
func SetNbMode(mode int) RawCommand {
	return Text(fmt.Sprintf("AT+CMNB=%d", mode))
}

// ConfigureRiPin configures AT+CFGRI.
func ConfigureRiPin(mode int) RawCommand {
	return Text(fmt.Sprintf("AT+CFGRI=%d", mode))
}

// ConfigureEDRX configures AT+CEDRXS.
func ConfigureEDRX(enabled bool, actType int, cycle string) RawCommand {
	if !enabled {
		return Text("AT+CEDRXS=0")
	}
	return Text(fmt.Sprintf("AT+CEDRXS=1,%d,%q", actType, cycle))
}

// EnableVBatCheck configures AT+CBATCHK.
func EnableVBatCheck(enabled bool) RawCommand {
	if enabled {
		return Text("AT+CBATCHK=1")
	}
	return Text("AT+CBATCHK=0")
}

// ShowIccid issues AT+CCID.
func ShowIccid() RawCommand { return Text("AT+CCID") }

// GetSignalQuality issues AT+CSQ.
func GetSignalQuality() RawCommand { return Text("AT+CSQ") }

// GetSystemInfo issues AT+CPSI?.
func GetSystemInfo() RawCommand { return Text("AT+CPSI?") }

// GetOperatorInfo issues AT+COPS?.
func GetOperatorInfo() RawCommand { return Text("AT+COPS?") }

// GetFirmwareVersion issues AT+CGMR.
func GetFirmwareVersion() RawCommand { return Text("AT+CGMR") }

// GetImei issues AT+CGSN (also known as AT+GSN on some dialects).
func GetImei() RawCommand { return Text("AT+CGSN") }

// GetNetworkTime issues AT+CCLK?.
func GetNetworkTime() RawCommand { return Text("AT+CCLK?") }

// ConfigureRegistrationUrc enables/disables +CREG/+CGREG/+CEREG URCs. mode
// 2 enables the URC and includes location info.
func ConfigureRegistrationUrc(family string, mode int) RawCommand {
	return Text(fmt.Sprintf("AT+%s=%d", family, mode))
}

// GetRegistrationStatus queries AT+<family>?.
func GetRegistrationStatus(family string) RawCommand {
	return Text(fmt.Sprintf("AT+%s?", family))
}

// EnableMultiIpConnection configures AT+CIPMUX.
func EnableMultiIpConnection(enabled bool) RawCommand {
	if enabled {
		return Text("AT+CIPMUX=1")
	}
	return Text("AT+CIPMUX=0")
}

// ShutConnections issues AT+CIPSHUT, tearing down all TCP contexts.
func ShutConnections() RawCommand { return Text("AT+CIPSHUT") }

// GetNetworkApn issues AT+CGNAPN, asking for the APN the network
// suggested during attach.
func GetNetworkApn() RawCommand { return Text("AT+CGNAPN") }

// StartTask configures the APN via AT+CSTT.
func StartTask(apn, user, pass string) RawCommand {
	return Text(fmt.Sprintf("AT+CSTT=%q,%q,%q", apn, user, pass))
}

// StartGprs issues AT+CIICR, bringing up the GPRS bearer.
func StartGprs() RawCommand { return Text("AT+CIICR") }

// GetLocalIpExt issues AT+CIFSREX.
func GetLocalIpExt() RawCommand { return Text("AT+CIFSREX") }

// Connect issues AT+CIPSTART for the given ordinal.
func Connect(ordinal int, host string, port uint16) RawCommand {
	return Text(fmt.Sprintf("AT+CIPSTART=%d,\"TCP\",%q,\"%d\"", ordinal, host, port))
}

// IpSendHeader announces an upcoming CIPSEND payload of length n bytes.
func IpSendHeader(ordinal, n int) RawCommand {
	return Text(fmt.Sprintf("AT+CIPSEND=%d,%d", ordinal, n))
}

// CloseConnection issues AT+CIPCLOSE for the given ordinal.
func CloseConnection(ordinal int) RawCommand {
	return Text(fmt.Sprintf("AT+CIPCLOSE=%d", ordinal))
}

// SetGnssPower configures AT+CGNSPWR.
func SetGnssPower(on bool) RawCommand {
	if on {
		return Text("AT+CGNSPWR=1")
	}
	return Text("AT+CGNSPWR=0")
}

// ConfigureGnssUrc configures AT+CGNSURC (periodic +UGNSINF reporting).
func ConfigureGnssUrc(periodSeconds int) RawCommand {
	return Text(fmt.Sprintf("AT+CGNSURC=%d", periodSeconds))
}

// GetGnssHorizontalAccuracy issues the AT+CGNSHOR? query.
func GetGnssHorizontalAccuracy() RawCommand { return Text("AT+CGNSHOR?") }

// GnssWorkMode selects whether a satellite constellation is started as
// part of AT+CGNSMOD (0=stop, 1=start, 2=start outside US).
type GnssWorkMode int

const (
	GnssWorkStop GnssWorkMode = iota
	GnssWorkStart
	GnssWorkStartOutsideUS
)

// SetGnssWorkMode configures AT+CGNSMOD: which of the GLONASS, BeiDou,
// and Galileo constellations run alongside GPS. GPS itself (the leading
// "1") is always on.
func SetGnssWorkMode(glonass, beidou, galileo GnssWorkMode) RawCommand {
	return Text(fmt.Sprintf("AT+CGNSMOD=1,%d,%d,%d", glonass, beidou, galileo))
}

// DownloadXtra issues the vendor HTTP-to-filesystem download command used
// to seed the assisted-GPS XTRA file.
func DownloadXtra(url string) RawCommand {
	return Text(fmt.Sprintf("AT+HTTPTOFS=%q,\"/customer/xtra3grc.bin\"", url))
}

// CopyXtra issues AT+CGNSCPY, copying the downloaded XTRA file into the
// GNSS subsystem's working location.
func CopyXtra() RawCommand { return Text("AT+CGNSCPY") }

// ToggleXtraFile issues AT+CGNSXTRA, enabling or disabling use of the
// XTRA assistance file for GNSS fixes.
func ToggleXtraFile(enabled bool) RawCommand {
	if enabled {
		return Text("AT+CGNSXTRA=1")
	}
	return Text("AT+CGNSXTRA=0")
}

// ColdStartGnss issues AT+CGNSCOLD, cold-starting the GNSS subsystem with
// the previously enabled XTRA file. The modem answers OK and then an
// XtraStatus line reporting whether the file was usable.
func ColdStartGnss() RawCommand { return Text("AT+CGNSCOLD") }

// CnactMode selects what AT+CNACT does to the app-network PDP context.
type CnactMode int

const (
	CnactDeactivate CnactMode = iota
	CnactActivate
	CnactAutoActivate
)

// SetAppNetwork issues AT+CNACT, bringing the app-network PDP context up
// or down against the given APN.
func SetAppNetwork(mode CnactMode, apn string) RawCommand {
	return Text(fmt.Sprintf("AT+CNACT=%d,%q", mode, apn))
}

// BearerCmdType enumerates the AT+SAPBR sub-operations.
type BearerCmdType int

const (
	BearerClose BearerCmdType = iota
	BearerOpen
	BearerQuery
	BearerSetParam
	BearerGetParam
)

// OpenBearer issues AT+SAPBR=1,1, opening bearer profile 1.
func OpenBearer() RawCommand {
	return Text(fmt.Sprintf("AT+SAPBR=%d,1", BearerOpen))
}

// SetBearerParam issues AT+SAPBR=3,1,"<param>","<value>" on bearer
// profile 1. param is one of "APN", "USER", "PWD".
func SetBearerParam(param, value string) RawCommand {
	return Text(fmt.Sprintf("AT+SAPBR=%d,1,%q,%q", BearerSetParam, param, value))
}

// SetNtpBearerProfile issues AT+CNTPCID, binding NTP sync to a GPRS
// bearer profile.
func SetNtpBearerProfile(cid int) RawCommand {
	return Text(fmt.Sprintf("AT+CNTPCID=%d", cid))
}

// ConfigureNtp issues AT+CNTP=..., setting the server, timezone
// quarter-hour offset, and bearer profile for the next ExecuteNtpSync.
func ConfigureNtp(server string, tzQuarterHours, cid int) RawCommand {
	return Text(fmt.Sprintf("AT+CNTP=%q,%d,%d", server, tzQuarterHours, cid))
}

// ExecuteNtpSync issues the bare AT+CNTP, performing the sync configured
// by ConfigureNtp. The modem answers OK immediately and a NetworkTime
// line once the exchange completes.
func ExecuteNtpSync() RawCommand { return Text("AT+CNTP") }

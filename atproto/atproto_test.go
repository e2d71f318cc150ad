package atproto_test

import (
	"bytes"
	"testing"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySignalQuality(t *testing.T) {
	// S1: "+CSQ: 10,2" then "OK".
	urc, resp := atproto.Classify("+CSQ: 10,2")
	assert.Nil(t, urc)
	require.IsType(t, atproto.SignalQuality{}, resp)
	sq := resp.(atproto.SignalQuality)
	require.NotNil(t, sq.SignalStrength)
	require.NotNil(t, sq.SignalQualityPct)
	assert.InDelta(t, 33.33, *sq.SignalStrength, 0.1)
	assert.InDelta(t, 0.57, *sq.SignalQualityPct, 0.001)

	_, resp2 := atproto.Classify("OK")
	assert.Equal(t, atproto.GenericOk{}, resp2)
}

func TestClassifySignalQualityUnknown(t *testing.T) {
	_, resp := atproto.Classify("+CSQ: 99,99")
	sq := resp.(atproto.SignalQuality)
	assert.Nil(t, sq.SignalStrength)
	assert.Nil(t, sq.SignalQualityPct)
}

func TestClassifyIccid(t *testing.T) {
	_, resp := atproto.Classify("89882806660011048438")
	require.IsType(t, atproto.Iccid{}, resp)
	iccid := resp.(atproto.Iccid)
	assert.Equal(t, 88, iccid.Country)
	assert.Equal(t, 28, iccid.Issuer)
	assert.Equal(t, "0666001104843", iccid.Account)
}

func TestClassifyIccidHexChecksum(t *testing.T) {
	_, resp := atproto.Classify("8901260862291477114f")
	require.IsType(t, atproto.Iccid{}, resp)
	iccid := resp.(atproto.Iccid)
	assert.Equal(t, 1, iccid.Country)
	assert.Equal(t, 26, iccid.Issuer)
}

func TestClassifyGnssNoFix(t *testing.T) {
	// S4: run-status on, fix-status off, 21 satellites in view.
	urc, resp := atproto.Classify("+UGNSINF: 1,0,,,,,,,,,,,,,21,,,,,,")
	assert.Nil(t, resp)
	require.IsType(t, atproto.GnssReport{}, urc)
	report := urc.(atproto.GnssReport)
	assert.Equal(t, atproto.GnssNoFix, report.Quality)
	require.True(t, report.SatGpsInViewKnown)
	assert.EqualValues(t, 21, report.SatGpsInView)
}

func TestClassifyGnssNotEnabled(t *testing.T) {
	urc, _ := atproto.Classify("+UGNSINF: 0,,,,,,,,,,,,,,,,,,,,")
	report := urc.(atproto.GnssReport)
	assert.Equal(t, atproto.GnssNotEnabled, report.Quality)
}

func TestClassifyGnssFix(t *testing.T) {
	urc, _ := atproto.Classify("+UGNSINF: 1,1,20100704092409.000,31.222067,121.354861,44.800,0.00,0.0,1,,1.5,2.5,2.0,,8,5,3,,40,,")
	require.IsType(t, atproto.GnssReport{}, urc)
	report := urc.(atproto.GnssReport)
	assert.Equal(t, atproto.GnssFix, report.Quality)
	assert.InDelta(t, 31.222067, report.Latitude, 0.0001)
	assert.InDelta(t, 121.354861, report.Longitude, 0.0001)
	assert.InDelta(t, 44.8, report.Altitude, 0.01)
	assert.EqualValues(t, 8, report.SatGpsInViewCount)
	assert.EqualValues(t, 5, report.SatGnssUsed)
	assert.EqualValues(t, 3, report.SatGlonassUsed)
	assert.EqualValues(t, 40, report.SignalToNoiseRatio)
}

func TestClassifyRegistrationUrcForm(t *testing.T) {
	urc, _ := atproto.Classify("+CGREG: 1")
	require.IsType(t, atproto.NetworkRegistration{}, urc)
	reg := urc.(atproto.NetworkRegistration)
	assert.Equal(t, atproto.RegistrationCGREG, reg.Source)
	assert.Equal(t, atproto.RegisteredHome, reg.Status)
}

func TestClassifyRegistrationQueryForm(t *testing.T) {
	urc, _ := atproto.Classify("+CGREG: 2,5")
	reg := urc.(atproto.NetworkRegistration)
	assert.Equal(t, atproto.RegisteredRoaming, reg.Status)
}

func TestClassifyConnectionMessage(t *testing.T) {
	urc, _ := atproto.Classify("0, CONNECT OK")
	cm := urc.(atproto.ConnectionMessage)
	assert.Equal(t, 0, cm.Index)
	assert.Equal(t, atproto.EventConnected, cm.Message)
}

func TestClassifyReceiveHeader(t *testing.T) {
	urc, _ := atproto.Classify("+RECEIVE,0,128:")
	rh := urc.(atproto.ReceiveHeader)
	assert.Equal(t, 0, rh.Connection)
	assert.Equal(t, 128, rh.Length)
}

func TestClassifyUnrecognizedLine(t *testing.T) {
	urc, resp := atproto.Classify("this line matches nothing known")
	assert.Nil(t, urc)
	assert.Nil(t, resp)
}

func TestClassifyImeiIsLastResort(t *testing.T) {
	// A bare 15-digit line classifies as Imei only because nothing earlier
	// in either parser table matches it.
	urc, resp := atproto.Classify("490154203237518")
	assert.Nil(t, urc)
	require.IsType(t, atproto.Imei{}, resp)
}

func TestClassifySimErrors(t *testing.T) {
	_, resp := atproto.Classify("ERROR")
	assert.Equal(t, atproto.SimError{Kind: atproto.SimErrorGeneric}, resp)

	_, resp = atproto.Classify("+CME ERROR: 3")
	assert.Equal(t, atproto.SimError{Kind: atproto.SimErrorCME, Code: "3"}, resp)
}

func TestLineReaderBasic(t *testing.T) {
	r := atproto.NewLineReader(bytes.NewBufferString("AT\r\r\nOK\r\n"))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line)
}

func TestLineReaderWritePrompt(t *testing.T) {
	r := atproto.NewLineReader(bytes.NewBufferString("\r\n> "))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, atproto.WritePromptText, line)
}

func TestLineReaderDiscardsEmptyLines(t *testing.T) {
	r := atproto.NewLineReader(bytes.NewBufferString("\r\n\r\nOK\r\n"))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line)
}

func TestLineReaderBufferOverflow(t *testing.T) {
	r := atproto.NewLineReader(bytes.NewReader(bytes.Repeat([]byte("x"), 1024)))
	_, err := r.ReadLine()
	assert.ErrorIs(t, err, atproto.ErrBufferOverflow)
}

func TestRawCommandText(t *testing.T) {
	cmd := atproto.Text("AT+CSQ")
	assert.Equal(t, []byte("AT+CSQ\r"), cmd.Bytes())
	assert.False(t, cmd.Binary)
}

func TestRawCommandBinaryPayload(t *testing.T) {
	cmd := atproto.BinaryPayload([]byte("hello"))
	assert.True(t, cmd.Binary)
	assert.Equal(t, []byte("hello"), cmd.Bytes())
}

func TestRequestBuilders(t *testing.T) {
	assert.Equal(t, "AT+CIPSTART=0,\"TCP\",\"example.com\",\"80\"\r", atproto.Connect(0, "example.com", 80).String())
	assert.Equal(t, "AT+CIPSEND=0,5\r", atproto.IpSendHeader(0, 5).String())
	assert.Equal(t, "AT+CSQ\r", atproto.GetSignalQuality().String())
	assert.Equal(t, "AT+CGNSMOD=1,1,1,1\r",
		atproto.SetGnssWorkMode(atproto.GnssWorkStart, atproto.GnssWorkStart, atproto.GnssWorkStart).String())
	assert.Equal(t, "AT+CNACT=1,\"internet\"\r", atproto.SetAppNetwork(atproto.CnactActivate, "internet").String())
	assert.Equal(t, "AT+SAPBR=3,1,\"APN\",\"internet\"\r", atproto.SetBearerParam("APN", "internet").String())
	assert.Equal(t, "AT+SAPBR=1,1\r", atproto.OpenBearer().String())
	assert.Equal(t, "AT+CNTPCID=1\r", atproto.SetNtpBearerProfile(1).String())
	assert.Equal(t, "AT+CNTP=\"pool.ntp.org\",0,1\r", atproto.ConfigureNtp("pool.ntp.org", 0, 1).String())
	assert.Equal(t, "AT+CNTP\r", atproto.ExecuteNtpSync().String())
	assert.Equal(t, "AT+CGNSXTRA=1\r", atproto.ToggleXtraFile(true).String())
	assert.Equal(t, "AT+CGNSCOLD\r", atproto.ColdStartGnss().String())
	assert.Equal(t, "AT+HTTPTOFS=\"http://example.com/xtra3grc.bin\",\"/customer/xtra3grc.bin\"\r",
		atproto.DownloadXtra("http://example.com/xtra3grc.bin").String())
}

func TestClassifyShutOkIsGenericOk(t *testing.T) {
	_, resp := atproto.Classify("SHUT OK")
	assert.Equal(t, atproto.GenericOk{}, resp)
}

func TestClassifyWritePrompt(t *testing.T) {
	_, resp := atproto.Classify("> ")
	assert.Equal(t, atproto.WritePrompt{}, resp)
}

func TestClassifyCloseOk(t *testing.T) {
	_, resp := atproto.Classify("3, CLOSE OK")
	assert.Equal(t, atproto.CloseOk{Connection: 3}, resp)
}

func TestClassifyDownloadInfo(t *testing.T) {
	_, resp := atproto.Classify("+HTTPTOFS: 200,51200")
	require.IsType(t, atproto.DownloadInfo{}, resp)
	info := resp.(atproto.DownloadInfo)
	assert.True(t, info.Ok())
	assert.EqualValues(t, 51200, info.DataLength)

	_, resp = atproto.Classify("+HTTPTOFS: 604")
	info = resp.(atproto.DownloadInfo)
	assert.False(t, info.Ok())
	assert.Equal(t, 604, info.Status)
}

func TestClassifyCopyResponse(t *testing.T) {
	_, resp := atproto.Classify("+CGNSCPY: 0")
	assert.Equal(t, atproto.CopyResponse{Success: true}, resp)
	_, resp = atproto.Classify("+CGNSCPY: 1")
	assert.Equal(t, atproto.CopyResponse{Success: false}, resp)
}

func TestClassifyXtraStatus(t *testing.T) {
	_, resp := atproto.Classify("+CGNSXTRA: 0")
	assert.Equal(t, atproto.XtraStatus{Outcome: atproto.XtraOk}, resp)
	_, resp = atproto.Classify("+CGNSXTRA: 2")
	assert.Equal(t, atproto.XtraStatus{Outcome: atproto.XtraNotEffective}, resp)
}

func TestClassifyNetworkTime(t *testing.T) {
	_, resp := atproto.Classify("+CCLK: \"22/08/01,09:24:09+08\"")
	require.IsType(t, atproto.NetworkTime{}, resp)
	nt := resp.(atproto.NetworkTime)
	assert.Equal(t, "22/08/01,09:24:09+08", nt.Raw)
	assert.Equal(t, 1, nt.Code)

	_, resp = atproto.Classify("+CNTP: 1,\"22/08/01,09:24:09+08\"")
	nt = resp.(atproto.NetworkTime)
	assert.Equal(t, 1, nt.Code)
	assert.Equal(t, "22/08/01,09:24:09+08", nt.Raw)

	_, resp = atproto.Classify("+CNTP: 62")
	nt = resp.(atproto.NetworkTime)
	assert.Equal(t, 62, nt.Code)
	assert.Empty(t, nt.Raw)
}

func TestClassifyVoltageAndPowerDown(t *testing.T) {
	urc, _ := atproto.Classify("UNDER-VOLTAGE WARNNING")
	assert.Equal(t, atproto.VoltageUnderWarning, urc)
	urc, _ = atproto.Classify("OVER-VOLTAGE WARNING")
	assert.Equal(t, atproto.VoltageOverWarning, urc)
	urc, _ = atproto.Classify("NORMAL POWER DOWN")
	assert.Equal(t, atproto.PowerDownNormal, urc)
	urc, _ = atproto.Classify("UNDER-VOLTAGE POWER DOWN")
	assert.Equal(t, atproto.PowerDownUnderVoltage, urc)
}

func TestClassifyCeregQueryFormDigitHeuristic(t *testing.T) {
	// URC form: the first field is already <stat>.
	urc, _ := atproto.Classify("+CEREG: 5")
	reg := urc.(atproto.NetworkRegistration)
	assert.Equal(t, atproto.RegisteredRoaming, reg.Status)

	// Query form: field 1 is <n>, field 2 is <stat>.
	urc, _ = atproto.Classify("+CEREG: 2,1")
	reg = urc.(atproto.NetworkRegistration)
	assert.Equal(t, atproto.RegisteredHome, reg.Status)

	// URC form with location info: field 2 is a quoted hex lac, not a
	// bare number, so field 1 stays <stat>.
	urc, _ = atproto.Classify("+CEREG: 1,\"D509\",\"80D413D\",7")
	reg = urc.(atproto.NetworkRegistration)
	assert.Equal(t, atproto.RegisteredHome, reg.Status)
}

func TestLineReaderBinaryAfterLine(t *testing.T) {
	r := atproto.NewLineReader(bytes.NewBufferString("+RECEIVE,0,4:\r\nabcd"))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "+RECEIVE,0,4:", line)

	buf := make([]byte, 4)
	require.NoError(t, r.ReadBinary(buf))
	assert.Equal(t, "abcd", string(buf))
}

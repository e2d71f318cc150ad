package atproto

// Urc is the tagged union of unsolicited result codes the decoder
// recognizes. As with ResponseCode, concrete types restrict the dynamic
// type set via an unexported marker method.
type Urc interface {
	urc()
}

// NetworkRegistration reports the modem's current registration state, as
// delivered via a +CREG/+CGREG/+CEREG URC (or query response). Only the
// source family and the status are kept; any access technology field on
// the line is not recorded.
type NetworkRegistration struct {
	Source RegistrationSource
	Status RegistrationStatus
}

func (NetworkRegistration) urc() {}

// RegistrationSource distinguishes which of the three registration URC
// families produced a NetworkRegistration value.
type RegistrationSource int

const (
	RegistrationCREG RegistrationSource = iota
	RegistrationCGREG
	RegistrationCEREG
)

// RegistrationStatus mirrors the 3GPP <stat> values shared by CREG/CGREG/
// CEREG.
type RegistrationStatus int

const (
	NotRegistered RegistrationStatus = iota
	RegisteredHome
	Searching
	RegistrationDenied
	RegistrationUnknown
	RegisteredRoaming
)

// ReceiveHeader announces that exactly Length raw bytes follow on the wire
// for the given Connection, with no further framing. The decoder switches
// to a binary read immediately after classifying this line.
type ReceiveHeader struct {
	Connection int
	Length     int
}

func (ReceiveHeader) urc() {}

// ConnectionMessage reports a state transition for one TCP slot.
type ConnectionMessage struct {
	Index   int
	Message ConnectionEvent
}

func (ConnectionMessage) urc() {}

// ConnectionEvent enumerates the "<n>, XXX" suffixes the modem appends to
// a connection index.
type ConnectionEvent int

const (
	EventConnected ConnectionEvent = iota
	EventConnectionFailed
	EventAlreadyConnected
	EventSendSuccess
	EventSendFail
	EventClosed
)

// GnssFixQuality distinguishes the three GnssReport shapes.
type GnssFixQuality int

const (
	GnssNotEnabled GnssFixQuality = iota
	GnssNoFix
	GnssFix
)

// GnssReport is the decoded +UGNSINF URC. Fields beyond Latitude/
// Longitude/Altitude are optional: an empty CSV field decodes to its
// numeric default rather than an error.
type GnssReport struct {
	Quality GnssFixQuality

	// Valid when Quality == GnssNoFix.
	SatGpsInViewKnown bool
	SatGpsInView      uint32

	// Valid when Quality == GnssFix.
	Latitude           float32
	Longitude          float32
	Altitude           float32
	HDOP               float32
	PDOP               float32
	VDOP               float32
	SpeedOverGround    float32
	CourseOverGround   float32
	SatGpsInViewCount  uint32
	SatGnssUsed        uint32
	SatGlonassUsed     uint32
	SignalToNoiseRatio uint32
}

func (GnssReport) urc() {}

// VoltageWarning reports the modem approaching an operating voltage limit,
// ahead of an automatic power-down.
type VoltageWarning int

const (
	VoltageUnderWarning VoltageWarning = iota
	VoltageOverWarning
)

func (VoltageWarning) urc() {}

// PowerDown reports the modem is about to power off, either on command or
// due to an out-of-range supply voltage.
type PowerDown int

const (
	PowerDownNormal PowerDown = iota
	PowerDownUnderVoltage
	PowerDownOverVoltage
)

func (PowerDown) urc() {}

// Ready is the bare "RDY" URC the modem sends shortly after power-on.
type Ready struct{}

func (Ready) urc() {}

// SmsReady is the "SMS Ready" URC; recognized for completeness though SMS
// itself is out of scope for this driver.
type SmsReady struct{}

func (SmsReady) urc() {}

// IncomingConnection is the "REMOTE IP: a.b.c.d" URC preceding an inbound
// connection notification in single-connection mode.
type IncomingConnection struct {
	RemoteIP [4]byte
}

func (IncomingConnection) urc() {}

// AppNetworkActive reports PDP context activation state changes.
type AppNetworkActive struct {
	Active bool
}

func (AppNetworkActive) urc() {}

// GprsDisconnected reports that the GPRS bearer has dropped.
type GprsDisconnected struct{}

func (GprsDisconnected) urc() {}

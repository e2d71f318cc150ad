package modem

import "time"

// RAT names one of the radio access technologies the sim7000 can attach
// over. Each RAT maps to one (CNMP, CMNB) pair rather than being a 1:1
// encoding of either AT command on its own.
type RAT int

const (
	RatLTECatM1 RAT = iota
	RatGSM
	RatLTENBIoT
)

func (r RAT) String() string {
	switch r {
	case RatLTECatM1:
		return "lte-catm1"
	case RatGSM:
		return "gsm"
	case RatLTENBIoT:
		return "lte-nbiot"
	default:
		return "unknown"
	}
}

// cnmpValue/cmnbValue are the raw AT+CNMP/AT+CMNB values for each RAT
// (CNMP: 2=automatic, 13=GSM, 38=LTE, 51=both; CMNB: 1=CatM, 2=NB-IoT,
// 3=both).
func (r RAT) cnmpValue() int {
	switch r {
	case RatGSM:
		return 13
	default:
		return 38 // LTE, further narrowed by CMNB
	}
}

func (r RAT) cmnbValue() int {
	switch r {
	case RatLTECatM1:
		return 1
	case RatLTENBIoT:
		return 2
	default:
		return 3
	}
}

// AutomaticMode drives the RAT-priority loop in Activate: RATs are tried
// in Priority order, each given up to Timeout to reach registration
// before the next is attempted.
type AutomaticMode struct {
	Priority []RAT
	Timeout  time.Duration
}

// ManualMode pins the network/NB mode to fixed AT+CNMP/AT+CMNB values
// instead of trying several RATs in sequence.
type ManualMode struct {
	NetworkMode int
	NbMode      int
}

// NetworkMode selects automatic RAT-priority scanning or a fixed manual
// mode. Exactly one of Automatic/Manual should be non-nil.
type NetworkMode struct {
	Automatic *AutomaticMode
	Manual    *ManualMode
}

// EDRXConfig configures extended discontinuous reception via AT+CEDRXS.
type EDRXConfig struct {
	Enabled     bool
	AutoReport  bool
	ActType     int
	CycleLength string
}

// RegistrationConfig bundles the network-attach parameters supplied to
// Init and Activate.
type RegistrationConfig struct {
	Network NetworkMode
	EDRX    EDRXConfig
}

// DefaultAutomaticMode tries LTE-CatM1 first, then GSM, then LTE-NBIoT,
// with two minutes per RAT.
func DefaultAutomaticMode() AutomaticMode {
	return AutomaticMode{
		Priority: []RAT{RatLTECatM1, RatGSM, RatLTENBIoT},
		Timeout:  2 * time.Minute,
	}
}

// APNConfig bundles the GPRS attach credentials used by authenticate().
type APNConfig struct {
	APN      string
	Username string
	Password string
}

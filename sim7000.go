// Package sim7000 is the top-level driver facade for a SIMCom
// SIM7000-family cellular modem: it wires the shared ModemContext, the
// four pump goroutines, and the claimable resource handles (TCP streams,
// GNSS, voltage warnings) onto one serial transport.
package sim7000

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/gnss"
	"github.com/sim7000-go/sim7000/modem"
	"github.com/sim7000-go/sim7000/tcpconn"
	"github.com/sim7000-go/sim7000/voltage"
)

// Modem is the user-facing driver handle. All methods are safe for
// concurrent use; command-level serialization happens on the shared
// command lock underneath.
type Modem struct {
	mc     *modem.ModemContext
	power  modem.PowerDriver
	reg    modem.RegistrationConfig
	apn    modem.APNConfig
	log    logrus.FieldLogger
	cancel context.CancelFunc
}

// Option customizes a Modem built by New.
type Option func(*Modem)

// WithPowerDriver supplies the hardware power-pin driver. Absent this,
// power transitions are tracked in software only (useful on dev boards
// with the modem hard-wired on).
func WithPowerDriver(d modem.PowerDriver) Option {
	return func(m *Modem) { m.power = d }
}

// WithRegistrationConfig sets the network-attach policy Activate uses.
func WithRegistrationConfig(cfg modem.RegistrationConfig) Option {
	return func(m *Modem) { m.reg = cfg }
}

// WithAPN sets the GPRS attach credentials.
func WithAPN(apn modem.APNConfig) Option {
	return func(m *Modem) { m.apn = apn }
}

// WithLogger overrides the structured logger the pumps report through.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Modem) { m.log = log }
}

// New builds a Modem over the given serial transport and launches its
// pump goroutines. The returned Modem is live immediately; call Close to
// stop the pumps and release the transport.
func New(rw io.ReadWriter, opts ...Option) *Modem {
	m := &Modem{
		mc:    modem.NewModemContext(),
		power: modem.NewNopPowerDriver(),
		reg:   modem.RegistrationConfig{Network: modem.NetworkMode{}},
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	ioPump := modem.NewIoPump(m.mc, rw, m.mc.Power().Subscribe(), m.log)
	rxPump := modem.NewRxPump(m.mc, m.log)
	txPump := modem.NewTxPump(m.mc, m.log)
	dropPump := modem.NewDropPump(m.mc, m.mc.Power().Subscribe(), m.log)

	initial := m.mc.Power().Last()
	go m.runPump(ctx, "io", func() error { return ioPump.Run(ctx, initial) })
	go m.runPump(ctx, "rx", func() error { return rxPump.Run(ctx) })
	go m.runPump(ctx, "tx", func() error { return txPump.Run(ctx) })
	go m.runPump(ctx, "drop", func() error { return dropPump.Run(ctx, initial) })

	return m
}

func (m *Modem) runPump(ctx context.Context, name string, run func() error) {
	err := run()
	if err != nil && ctx.Err() == nil {
		m.log.WithError(err).WithField("pump", name).Error("pump exited")
	}
}

// Close stops the pump goroutines. It does not power the modem down; use
// Deactivate and the power driver for an orderly shutdown first.
func (m *Modem) Close() {
	m.cancel()
}

// Context exposes the shared ModemContext for advanced integrations that
// compose their own handles on top of the driver.
func (m *Modem) Context() *modem.ModemContext {
	return m.mc
}

// Init burns in the modem's fixed device settings and powers it back
// down.
func (m *Modem) Init(ctx context.Context) error {
	return modem.Init(ctx, m.mc, m.power, m.reg)
}

// Activate powers the modem on and attaches it to the network per the
// registration config and APN.
func (m *Modem) Activate(ctx context.Context) error {
	return modem.Activate(ctx, m.mc, m.power, m.reg, m.apn)
}

// Deactivate shuts all TCP contexts down. Idempotent.
func (m *Modem) Deactivate(ctx context.Context) error {
	return modem.Deactivate(ctx, m.mc)
}

// Reset hardware-resets the modem and re-runs Init.
func (m *Modem) Reset(ctx context.Context) error {
	return modem.Reset(ctx, m.mc, m.power, m.reg)
}

// Sleep puts the modem into its low-power state; physical I/O suspends
// until Wake.
func (m *Modem) Sleep(ctx context.Context) error {
	return modem.Sleep(ctx, m.mc, m.power)
}

// Wake returns the modem to full power.
func (m *Modem) Wake(ctx context.Context) error {
	return modem.Wake(ctx, m.mc, m.power)
}

// ConnectTCP opens a TCP connection to host:port over one of the modem's
// multi-IP slots.
func (m *Modem) ConnectTCP(ctx context.Context, host string, port uint16) (*tcpconn.TcpStream, error) {
	return tcpconn.Connect(ctx, m.mc, host, port)
}

// ClaimGNSS powers the GNSS subsystem on and returns its report handle,
// or gnss.ErrClaimed if a live handle already exists.
func (m *Modem) ClaimGNSS(ctx context.Context) (*gnss.Gnss, error) {
	return gnss.Claim(ctx, m.mc)
}

// ClaimVoltageWarner returns the voltage-warning handle, or
// voltage.ErrClaimed if a live handle already exists.
func (m *Modem) ClaimVoltageWarner() (*voltage.Warner, error) {
	return voltage.Claim(m.mc)
}

// SyncNTP synchronizes the modem clock against server, localized to the
// given quarter-hour timezone offset.
func (m *Modem) SyncNTP(ctx context.Context, server string, tzQuarterHours int) error {
	return modem.SyncNTP(ctx, m.mc, m.apn, server, tzQuarterHours)
}

// DownloadXTRA fetches the assisted-GPS XTRA seed file from url onto the
// modem's filesystem. Sync the clock first (SyncNTP).
func (m *Modem) DownloadXTRA(ctx context.Context, url string) error {
	return gnss.DownloadXtra(ctx, m.mc, m.apn, url)
}

// ColdStartWithXTRA cold-starts the GNSS subsystem against a previously
// downloaded XTRA file.
func (m *Modem) ColdStartWithXTRA(ctx context.Context) error {
	return gnss.ColdStartWithXtra(ctx, m.mc)
}

// SignalQuality queries AT+CSQ.
func (m *Modem) SignalQuality(ctx context.Context) (atproto.SignalQuality, error) {
	return modem.SignalQuality(ctx, m.mc)
}

// ICCID queries the SIM's ICCID.
func (m *Modem) ICCID(ctx context.Context) (atproto.Iccid, error) {
	return modem.ICCID(ctx, m.mc)
}

// IMEI queries the modem's IMEI.
func (m *Modem) IMEI(ctx context.Context) (atproto.Imei, error) {
	return modem.IMEI(ctx, m.mc)
}

// FirmwareVersion queries the modem firmware revision.
func (m *Modem) FirmwareVersion(ctx context.Context) (atproto.FwVersion, error) {
	return modem.FirmwareVersion(ctx, m.mc)
}

// SystemInfo queries AT+CPSI.
func (m *Modem) SystemInfo(ctx context.Context) (atproto.SystemInfo, error) {
	return modem.SystemInfo(ctx, m.mc)
}

// OperatorInfo queries the registered operator.
func (m *Modem) OperatorInfo(ctx context.Context) (atproto.OperatorInfo, error) {
	return modem.OperatorInfo(ctx, m.mc)
}

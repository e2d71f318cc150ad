// Package config loads driver configuration (serial device, APN
// credentials, network attach policy, eDRX) from a TOML file, and maps
// it onto the modem package's configuration types.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/modem"
)

// Duration is a time.Duration that unmarshals from a TOML string such as
// "2m" or "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Device configures the serial transport.
type Device struct {
	Port           string   `toml:"port"`
	Baud           int      `toml:"baud"`
	CommandTimeout Duration `toml:"command_timeout"`
}

// APN configures the GPRS attach credentials.
type APN struct {
	Name     string `toml:"name"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Network selects automatic RAT scanning or a fixed manual mode. Mode is
// "automatic" or "manual".
type Network struct {
	Mode       string   `toml:"mode"`
	Priority   []string `toml:"priority"`
	RatTimeout Duration `toml:"rat_timeout"`

	// Manual-mode raw AT+CNMP/AT+CMNB values.
	NetworkMode int `toml:"network_mode"`
	NbMode      int `toml:"nb_mode"`
}

// EDRX configures extended discontinuous reception.
type EDRX struct {
	Enabled     bool   `toml:"enabled"`
	AutoReport  bool   `toml:"auto_report"`
	ActType     int    `toml:"act_type"`
	CycleLength string `toml:"cycle_length"`
}

// Config is the root of the TOML document.
type Config struct {
	Device  Device  `toml:"device"`
	APN     APN     `toml:"apn"`
	Network Network `toml:"network"`
	EDRX    EDRX    `toml:"edrx"`
}

// Default returns the configuration used absent a file: the post-init
// serial rate, automatic RAT scanning in the standard priority order, and
// eDRX off.
func Default() *Config {
	auto := modem.DefaultAutomaticMode()
	priority := make([]string, len(auto.Priority))
	for i, rat := range auto.Priority {
		priority[i] = rat.String()
	}
	return &Config{
		Device: Device{
			Port:           "/dev/ttyUSB0",
			Baud:           115200,
			CommandTimeout: Duration(5 * time.Second),
		},
		Network: Network{
			Mode:       "automatic",
			Priority:   priority,
			RatTimeout: Duration(auto.Timeout),
		},
	}
}

// Parse decodes a TOML document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: invalid toml")
	}
	return cfg, nil
}

// Load reads and parses the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}
	return Parse(data)
}

// ratByName maps the TOML priority names onto modem.RAT values.
func ratByName(name string) (modem.RAT, error) {
	switch name {
	case modem.RatLTECatM1.String():
		return modem.RatLTECatM1, nil
	case modem.RatGSM.String():
		return modem.RatGSM, nil
	case modem.RatLTENBIoT.String():
		return modem.RatLTENBIoT, nil
	}
	return 0, errors.Errorf("config: unknown rat %q", name)
}

// Registration maps the network and eDRX sections onto the
// modem.RegistrationConfig Activate consumes.
func (c *Config) Registration() (modem.RegistrationConfig, error) {
	reg := modem.RegistrationConfig{
		EDRX: modem.EDRXConfig{
			Enabled:     c.EDRX.Enabled,
			AutoReport:  c.EDRX.AutoReport,
			ActType:     c.EDRX.ActType,
			CycleLength: c.EDRX.CycleLength,
		},
	}

	switch c.Network.Mode {
	case "", "automatic":
		auto := modem.DefaultAutomaticMode()
		if len(c.Network.Priority) > 0 {
			auto.Priority = auto.Priority[:0]
			for _, name := range c.Network.Priority {
				rat, err := ratByName(name)
				if err != nil {
					return reg, err
				}
				auto.Priority = append(auto.Priority, rat)
			}
		}
		if c.Network.RatTimeout > 0 {
			auto.Timeout = time.Duration(c.Network.RatTimeout)
		}
		reg.Network = modem.NetworkMode{Automatic: &auto}
	case "manual":
		reg.Network = modem.NetworkMode{Manual: &modem.ManualMode{
			NetworkMode: c.Network.NetworkMode,
			NbMode:      c.Network.NbMode,
		}}
	default:
		return reg, errors.Errorf("config: unknown network mode %q", c.Network.Mode)
	}
	return reg, nil
}

// APNConfig maps the apn section onto the modem.APNConfig Activate and
// SyncNTP consume.
func (c *Config) APNConfig() modem.APNConfig {
	return modem.APNConfig{
		APN:      c.APN.Name,
		Username: c.APN.Username,
		Password: c.APN.Password,
	}
}

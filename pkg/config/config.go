// Package config loads the sensor daemon configuration.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
	"github.com/robotalks/ld2410.go/pkg/ld2410/serial"
	"github.com/robotalks/ld2410.go/pkg/msgs"
)

// Environment variables providing defaults for flags.
const (
	EnvConfig = "LD2410_CONFIG"
	EnvDevice = "LD2410_DEVICE"
	EnvMQTT   = "LD2410_MQTT_URL"
	EnvNode   = "LD2410_NODE"
)

// Defaults
const (
	DefaultDevice  = "/dev/ttyUSB0"
	DefaultMQTTURL = "mqtt://localhost:1883/ld2410/"
)

const nodeIDApp = "ld2410"

// Config is the daemon configuration.
type Config struct {
	Serial serial.Config `yaml:"serial"`
	// CommandTimeout bounds each command sent to the module.
	CommandTimeout time.Duration `yaml:"command-timeout"`
	// Engineering switches the module to engineering reports.
	Engineering bool `yaml:"engineering"`
	// MQTT is the broker URL, reports are only logged when empty.
	MQTT string `yaml:"mqtt"`
	// Node names this sensor in topics, defaults to NodeID().
	Node string `yaml:"node"`
	// Sensor is applied to the module at startup when present.
	Sensor *msgs.SensorConfig `yaml:"sensor,omitempty"`
}

// Defaults returns the built-in defaults.
func Defaults() *Config {
	return &Config{
		Serial:         serial.DefaultConfig(DefaultDevice),
		CommandTimeout: ld2410.DefaultTimeout,
		MQTT:           DefaultMQTTURL,
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	conf := Defaults()
	if err := conf.load(path); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("cannot parse yaml %s: %w", path, err)
	}
	glog.V(1).Infof("config loaded from %s", path)
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return err
	}
	if c.CommandTimeout <= 0 {
		return errors.New("command timeout must be positive")
	}
	if c.Sensor != nil {
		if _, err := c.Sensor.Configuration(); err != nil {
			return fmt.Errorf("sensor: %w", err)
		}
	}
	return nil
}

type flagValues struct {
	config      string
	device      string
	baud        int
	timeout     time.Duration
	engineering bool
	mqtt        string
	node        string
}

// Parse builds the configuration from defaults, the config file, the
// environment and the command line, later ones win. getenv is usually
// os.Getenv.
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	defaults := Defaults()
	var v flagValues
	fs.StringVar(&v.config, "config", getenv(EnvConfig), "YAML config file.")
	fs.StringVar(&v.device, "device", defaults.Serial.Device, "Serial device of the sensor.")
	fs.IntVar(&v.baud, "baud", defaults.Serial.Baud, "Serial baud rate.")
	fs.DurationVar(&v.timeout, "timeout", defaults.CommandTimeout, "Command timeout.")
	fs.BoolVar(&v.engineering, "engineering", defaults.Engineering, "Enable engineering reports.")
	fs.StringVar(&v.mqtt, "mqtt", defaults.MQTT, "MQTT broker URL, empty to only log reports.")
	fs.StringVar(&v.node, "node", "", "Node name, defaults to an ID derived from the machine.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	conf := defaults
	if v.config != "" {
		if err := conf.load(v.config); err != nil {
			return nil, err
		}
	}
	if val := getenv(EnvDevice); val != "" {
		conf.Serial.Device = val
	}
	if val := getenv(EnvMQTT); val != "" {
		conf.MQTT = val
	}
	if val := getenv(EnvNode); val != "" {
		conf.Node = val
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			conf.Serial.Device = v.device
		case "baud":
			conf.Serial.Baud = v.baud
		case "timeout":
			conf.CommandTimeout = v.timeout
		case "engineering":
			conf.Engineering = v.engineering
		case "mqtt":
			conf.MQTT = v.mqtt
		case "node":
			conf.Node = v.node
		}
	})
	if conf.Node == "" {
		conf.Node = NodeID()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// NodeID derives a stable ID of this machine. It falls back to a random ID
// when the machine ID is unavailable.
func NodeID() string {
	id, err := machineid.ProtectedID(nodeIDApp)
	if err != nil {
		glog.Warningf("machine id unavailable, using random node id: %v", err)
		return uuid.NewString()
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

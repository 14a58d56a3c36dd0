package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/v-kiniv/imu/internal/utils"
)

const DefaultAppName = "imuread"
const DefaultConfigName = "config"
const DefaultBaudRate = 115200

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfig = path.Join(userHomeDir, ".config/"+DefaultAppName+"/"+DefaultConfigName+".yaml")
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"

// BusOpt declares one transport. Kind selects the implementation: "i2c"
// (Device is the adapter number), "spi" (Ports lists one spidev path per
// chip-select line) or "serial" (Device is the port path, Baud optional).
type BusOpt struct {
	ID     string   `yaml:"id" mapstructure:"id"`
	Kind   string   `yaml:"kind" mapstructure:"kind"`
	Device string   `yaml:"device" mapstructure:"device"`
	Ports  []string `yaml:"ports" mapstructure:"ports"`
	Baud   int      `yaml:"baud" mapstructure:"baud"`
}

// SensorOpt declares one attachment: which chip on which bus serves a
// category, with the range/rate hints and the mounting orientation.
type SensorOpt struct {
	Category    string  `yaml:"category" mapstructure:"category"`
	Chip        string  `yaml:"chip" mapstructure:"chip"`
	Bus         string  `yaml:"bus" mapstructure:"bus"`
	Address     int     `yaml:"address" mapstructure:"address"`
	FullScale   float64 `yaml:"full_scale" mapstructure:"full_scale"`
	DataRate    int     `yaml:"data_rate" mapstructure:"data_rate"`
	Orientation string  `yaml:"orientation" mapstructure:"orientation"`
}

type IMUReadOpt struct {
	Buses   []BusOpt    `yaml:"buses" mapstructure:"buses"`
	Sensors []SensorOpt `yaml:"sensors" mapstructure:"sensors"`
	Debug   bool        `yaml:"debug" mapstructure:"debug"`
}

type IMUReadDesc struct {
	Opt   IMUReadOpt
	Viper *viper.Viper
}

func NewIMUReadDesc() IMUReadDesc {
	return IMUReadDesc{
		Opt:   NewIMUReadOpt(),
		Viper: nil,
	}
}

// NewIMUReadOpt returns the template configuration the init subcommand dumps:
// an MPU-6500 accelerometer/gyroscope pair and an AK8963 compass on I2C
// adapter 1.
func NewIMUReadOpt() IMUReadOpt {
	return IMUReadOpt{
		Buses: []BusOpt{
			{ID: "i2c1", Kind: "i2c", Device: "1"},
		},
		Sensors: []SensorOpt{
			{Category: "accelerometer", Chip: "mpu6500-accel", Bus: "i2c1", Address: 0x68, FullScale: 4, DataRate: 100},
			{Category: "gyroscope", Chip: "mpu6500-gyro", Bus: "i2c1", Address: 0x68, FullScale: 500, DataRate: 100},
			{Category: "magnetometer", Chip: "ak8963", Bus: "i2c1", Address: 0x0C, DataRate: 100},
		},
		Debug: false,
	}
}

func (o *IMUReadDesc) Parse(cmd *cobra.Command) error {
	vipCfg := viper.New()
	vipCfg.SetDefault("debug", false)

	if configFileCmd, err := cmd.Flags().GetString("config"); err == nil && configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
	} else {
		configFileEnv := os.Getenv("IMUREAD_CONFIG")
		if configFileEnv != "" {
			vipCfg.SetConfigFile(configFileEnv)
		} else {
			vipCfg.SetConfigName(DefaultConfigName)
			vipCfg.SetConfigType("yaml")
			vipCfg.AddConfigPath(DefaultConfigSearchPath0)
			vipCfg.AddConfigPath(DefaultConfigSearchPath1)
			vipCfg.AddConfigPath(DefaultConfigSearchPath2)
		}
	}

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	_ = vipCfg.BindPFlag("debug", cmd.Flags().Lookup("debug"))

	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		log.Warnln(err)
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	o.Viper = vipCfg
	return o.Opt.Validate()
}

func (o *IMUReadDesc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Validate checks the cross-references the unmarshal cannot: every sensor
// must name a declared bus and a known category.
func (o *IMUReadOpt) Validate() error {
	buses := make(map[string]bool, len(o.Buses))
	for _, b := range o.Buses {
		if b.ID == "" {
			return errors.New("bus with empty id")
		}
		if buses[b.ID] {
			return fmt.Errorf("duplicate bus id %q", b.ID)
		}
		switch b.Kind {
		case "i2c", "spi", "serial":
		default:
			return fmt.Errorf("bus %q: unknown kind %q", b.ID, b.Kind)
		}
		buses[b.ID] = true
	}
	for _, s := range o.Sensors {
		if !buses[s.Bus] {
			return fmt.Errorf("sensor %q: undeclared bus %q", s.Chip, s.Bus)
		}
		switch s.Category {
		case "accelerometer", "gyroscope", "magnetometer":
		default:
			return fmt.Errorf("sensor %q: unknown category %q", s.Chip, s.Category)
		}
	}
	return nil
}

func (o *IMUReadDesc) SaveConfig() error {
	if o.Viper == nil {
		return errors.New("viper is nil")
	}
	f, err := os.OpenFile(o.Viper.ConfigFileUsed(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w := bufio.NewWriter(f)
	s, _ := yaml.Marshal(o.Opt)
	_, err = w.Write(s)
	if err != nil {
		return err
	}
	_ = w.Flush()
	return nil
}

// InitCfg prepares a configuration template for the application.
func InitCfg(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwriteFlag, _ := cmd.Flags().GetBool("yes")

	opt := NewIMUReadOpt()
	if printFlag {
		configBuffer, _ := yaml.Marshal(opt)
		fmt.Println(string(configBuffer))
		return nil
	}
	return utils.DumpOption(opt, outputPath, overwriteFlag)
}

package config

import (
	"fmt"
	"time"

	"github.com/OCAP2/drivesim/internal/agent"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "drivesim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the telemetry storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// DSN renders the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"serviceName"`
	BatchTimeout   time.Duration `mapstructure:"batchTimeout"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	MetricInterval time.Duration `mapstructure:"metricInterval"`
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Protocol string `mapstructure:"protocol"`
	Token    string `mapstructure:"token"`
	Org      string `mapstructure:"org"`
	Bucket   string `mapstructure:"bucket"`
}

// URL renders the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// SimConfig holds runner settings
type SimConfig struct {
	Name        string  `mapstructure:"name"`
	TickRate    float64 `mapstructure:"tickRate"`
	Ticks       int     `mapstructure:"ticks"`
	Parallelism int     `mapstructure:"parallelism"`
	SampleEvery int     `mapstructure:"sampleEvery"`
	Realtime    bool    `mapstructure:"realtime"`
}

// MonitorConfig holds status monitor settings
type MonitorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	StatusFile string        `mapstructure:"statusFile"`
}

// RecorderConfig holds telemetry queue settings
type RecorderConfig struct {
	BufferSize int  `mapstructure:"bufferSize"`
	Blocking   bool `mapstructure:"blocking"`
}

// CurveKey is one keyframe of a response curve.
type CurveKey struct {
	Time  float64 `mapstructure:"time"`
	Value float64 `mapstructure:"value"`
}

// VehicleConfig holds dynamics tuning
type VehicleConfig struct {
	MaxTorque              float64    `mapstructure:"maxTorque"`
	MaxSpeed               float64    `mapstructure:"maxSpeed"`
	MaxSpeedReverse        float64    `mapstructure:"maxSpeedReverse"`
	GearRatio              float64    `mapstructure:"gearRatio"`
	BrakeTorque            float64    `mapstructure:"brakeTorque"`
	DecelerationMultiplier float64    `mapstructure:"decelerationMultiplier"`
	MaxSteerAngle          float64    `mapstructure:"maxSteerAngle"`
	SteerRate              float64    `mapstructure:"steerRate"`
	JumpForce              float64    `mapstructure:"jumpForce"`
	DriftMultiplier        float64    `mapstructure:"driftMultiplier"`
	BoostForce             float64    `mapstructure:"boostForce"`
	SteeringCurve          []CurveKey `mapstructure:"steeringCurve"`
}

// CarConfig holds the reference physics car's dimensions
type CarConfig struct {
	Mass         float64 `mapstructure:"mass"`
	WheelBase    float64 `mapstructure:"wheelBase"`
	WheelRadius  float64 `mapstructure:"wheelRadius"`
	Gravity      float64 `mapstructure:"gravity"`
	Drag         float64 `mapstructure:"drag"`
	LateralGrip  float64 `mapstructure:"lateralGrip"`
	Drive        string  `mapstructure:"drive"`
	ExtremumSlip float64 `mapstructure:"extremumSlip"`
}

// SensorConfig holds the obstacle probe pattern
type SensorConfig struct {
	Length        float64 `mapstructure:"length"`
	SideDistance  float64 `mapstructure:"sideDistance"`
	Angle         float64 `mapstructure:"angle"`
	OffsetForward float64 `mapstructure:"offsetForward"`
	OffsetUp      float64 `mapstructure:"offsetUp"`
	Layers        []uint8 `mapstructure:"layers"`
}

// AgentConfig holds path-follower tuning
type AgentConfig struct {
	Tolerance  float64 `mapstructure:"tolerance"`
	MaxWait    float64 `mapstructure:"maxWait"`
	MaxReverse float64 `mapstructure:"maxReverse"`
	StartIndex int     `mapstructure:"startIndex"`
	Recovery   string  `mapstructure:"recovery"`
}

// ObstacleConfig is a static obstacle in map coordinates
type ObstacleConfig struct {
	Name      string      `mapstructure:"name"`
	Footprint [][]float64 `mapstructure:"footprint"`
	Base      float64     `mapstructure:"base"`
	Height    float64     `mapstructure:"height"`
	Layer     uint8       `mapstructure:"layer"`
}

// VehicleSpec is one vehicle of a scenario. Waypoints are map coordinates
// [x, y] or [x, y, elevation]; LonLat waypoints are "lon,lat[,elev]"
// strings projected around the scenario origin. The first waypoint is the
// spawn point.
type VehicleSpec struct {
	Name       string       `mapstructure:"name"`
	Driver     string       `mapstructure:"driver"`
	Waypoints  [][]float64  `mapstructure:"waypoints"`
	LonLat     []string     `mapstructure:"lonLat"`
	Loop       bool         `mapstructure:"loop"`
	ActionMode string       `mapstructure:"actionMode"`
	Script     []agent.Step `mapstructure:"script"`
	LoopScript bool         `mapstructure:"loopScript"`
}

// ScenarioConfig describes the world and the vehicles in it
type ScenarioConfig struct {
	Origin    []float64        `mapstructure:"origin"` // lon, lat for LonLat waypoints
	Obstacles []ObstacleConfig `mapstructure:"obstacles"`
	Vehicles  []VehicleSpec    `mapstructure:"vehicles"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./drivesimlogs")

	viper.SetDefault("sim.name", "drivesim")
	viper.SetDefault("sim.tickRate", 50.0)
	viper.SetDefault("sim.ticks", 3000)
	viper.SetDefault("sim.parallelism", 4)
	viper.SetDefault("sim.sampleEvery", 1)
	viper.SetDefault("sim.realtime", false)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("recorder.bufferSize", 10000)
	viper.SetDefault("recorder.blocking", false)

	viper.SetDefault("vehicle.maxTorque", 500.0)
	viper.SetDefault("vehicle.maxSpeed", 10.0)
	viper.SetDefault("vehicle.maxSpeedReverse", 10.0)
	viper.SetDefault("vehicle.gearRatio", 30.0)
	viper.SetDefault("vehicle.brakeTorque", 1500.0)
	viper.SetDefault("vehicle.decelerationMultiplier", 0.1)
	viper.SetDefault("vehicle.maxSteerAngle", 30.0)
	viper.SetDefault("vehicle.steerRate", 0.2)
	viper.SetDefault("vehicle.jumpForce", 1.3)
	viper.SetDefault("vehicle.driftMultiplier", 5.0)
	viper.SetDefault("vehicle.boostForce", 5000.0)

	viper.SetDefault("car.mass", 1200.0)
	viper.SetDefault("car.wheelBase", 2.6)
	viper.SetDefault("car.wheelRadius", 0.35)
	viper.SetDefault("car.gravity", 9.81)
	viper.SetDefault("car.drag", 0.05)
	viper.SetDefault("car.lateralGrip", 8.0)
	viper.SetDefault("car.drive", "rear")
	viper.SetDefault("car.extremumSlip", 0.2)

	viper.SetDefault("sensor.length", 10.0)
	viper.SetDefault("sensor.sideDistance", 1.0)
	viper.SetDefault("sensor.angle", 25.0)
	viper.SetDefault("sensor.offsetForward", 0.0)
	viper.SetDefault("sensor.offsetUp", 0.5)

	viper.SetDefault("agent.tolerance", 0.5)
	viper.SetDefault("agent.maxWait", 10.0)
	viper.SetDefault("agent.maxReverse", 10.0)
	viper.SetDefault("agent.startIndex", 1)
	viper.SetDefault("agent.recovery", "reverse")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "drivesim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "drivesim")
	viper.SetDefault("influx.bucket", "telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "drivesim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricInterval", "10s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetSimConfig() SimConfig {
	return SimConfig{
		Name:        viper.GetString("sim.name"),
		TickRate:    viper.GetFloat64("sim.tickRate"),
		Ticks:       viper.GetInt("sim.ticks"),
		Parallelism: viper.GetInt("sim.parallelism"),
		SampleEvery: viper.GetInt("sim.sampleEvery"),
		Realtime:    viper.GetBool("sim.realtime"),
	}
}

func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize: viper.GetInt("recorder.bufferSize"),
		Blocking:   viper.GetBool("recorder.blocking"),
	}
}

// GetVehicleConfig reads the "vehicle" section. The optional steering curve
// is a list of {time, value} keys.
func GetVehicleConfig() (VehicleConfig, error) {
	c := VehicleConfig{
		MaxTorque:              viper.GetFloat64("vehicle.maxTorque"),
		MaxSpeed:               viper.GetFloat64("vehicle.maxSpeed"),
		MaxSpeedReverse:        viper.GetFloat64("vehicle.maxSpeedReverse"),
		GearRatio:              viper.GetFloat64("vehicle.gearRatio"),
		BrakeTorque:            viper.GetFloat64("vehicle.brakeTorque"),
		DecelerationMultiplier: viper.GetFloat64("vehicle.decelerationMultiplier"),
		MaxSteerAngle:          viper.GetFloat64("vehicle.maxSteerAngle"),
		SteerRate:              viper.GetFloat64("vehicle.steerRate"),
		JumpForce:              viper.GetFloat64("vehicle.jumpForce"),
		DriftMultiplier:        viper.GetFloat64("vehicle.driftMultiplier"),
		BoostForce:             viper.GetFloat64("vehicle.boostForce"),
	}
	if err := viper.UnmarshalKey("vehicle.steeringCurve", &c.SteeringCurve); err != nil {
		return VehicleConfig{}, fmt.Errorf("vehicle steering curve: %w", err)
	}
	return c, nil
}

func GetCarConfig() CarConfig {
	return CarConfig{
		Mass:         viper.GetFloat64("car.mass"),
		WheelBase:    viper.GetFloat64("car.wheelBase"),
		WheelRadius:  viper.GetFloat64("car.wheelRadius"),
		Gravity:      viper.GetFloat64("car.gravity"),
		Drag:         viper.GetFloat64("car.drag"),
		LateralGrip:  viper.GetFloat64("car.lateralGrip"),
		Drive:        viper.GetString("car.drive"),
		ExtremumSlip: viper.GetFloat64("car.extremumSlip"),
	}
}

// GetSensorConfig reads the "sensor" section. No layers means every layer.
func GetSensorConfig() (SensorConfig, error) {
	c := SensorConfig{
		Length:        viper.GetFloat64("sensor.length"),
		SideDistance:  viper.GetFloat64("sensor.sideDistance"),
		Angle:         viper.GetFloat64("sensor.angle"),
		OffsetForward: viper.GetFloat64("sensor.offsetForward"),
		OffsetUp:      viper.GetFloat64("sensor.offsetUp"),
	}
	if err := viper.UnmarshalKey("sensor.layers", &c.Layers); err != nil {
		return SensorConfig{}, fmt.Errorf("sensor layers: %w", err)
	}
	return c, nil
}

func GetAgentConfig() AgentConfig {
	return AgentConfig{
		Tolerance:  viper.GetFloat64("agent.tolerance"),
		MaxWait:    viper.GetFloat64("agent.maxWait"),
		MaxReverse: viper.GetFloat64("agent.maxReverse"),
		StartIndex: viper.GetInt("agent.startIndex"),
		Recovery:   viper.GetString("agent.recovery"),
	}
}

// GetScenario unmarshals the "scenario" section.
func GetScenario() (ScenarioConfig, error) {
	var s ScenarioConfig
	if err := viper.UnmarshalKey("scenario", &s); err != nil {
		return ScenarioConfig{}, fmt.Errorf("scenario config: %w", err)
	}
	return s, nil
}

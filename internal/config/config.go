package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "trafficsignal.cfg.json"

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("street.north", 250)
	viper.SetDefault("street.south", 450)
	viper.SetDefault("street.west", 450)
	viper.SetDefault("street.east", 750)

	// durations without a unit are milliseconds
	viper.SetDefault("horizontalCar.x", 1200)
	viper.SetDefault("horizontalCar.y", 265)
	viper.SetDefault("horizontalCar.width", 77)
	viper.SetDefault("horizontalCar.height", 77)
	viper.SetDefault("horizontalCar.step", 1)
	viper.SetDefault("horizontalCar.timerDelay", 1000)
	viper.SetDefault("horizontalCar.timerInterval", 8)

	viper.SetDefault("verticalCar.x", 655)
	viper.SetDefault("verticalCar.y", 700)
	viper.SetDefault("verticalCar.width", 77)
	viper.SetDefault("verticalCar.height", 77)
	viper.SetDefault("verticalCar.step", 1)
	viper.SetDefault("verticalCar.timerDelay", 1000)
	viper.SetDefault("verticalCar.timerInterval", 8)

	viper.SetDefault("horizontalSignal.x", 800)
	viper.SetDefault("horizontalSignal.y", 160)
	viper.SetDefault("horizontalSignal.width", 40)
	viper.SetDefault("horizontalSignal.height", 80)
	viper.SetDefault("horizontalSignal.lightWidth", 30)
	viper.SetDefault("horizontalSignal.lightHeight", 30)
	viper.SetDefault("horizontalSignal.color", "go")

	viper.SetDefault("verticalSignal.x", 760)
	viper.SetDefault("verticalSignal.y", 480)
	viper.SetDefault("verticalSignal.width", 80)
	viper.SetDefault("verticalSignal.height", 40)
	viper.SetDefault("verticalSignal.lightWidth", 30)
	viper.SetDefault("verticalSignal.lightHeight", 30)
	viper.SetDefault("verticalSignal.color", "stop")

	viper.SetDefault("signalTimer.timerDelay", 5000)
	viper.SetDefault("signalTimer.timerInterval", 5000)

	viper.SetDefault("sidewalk.width", 450)
	viper.SetDefault("sidewalk.height", 250)
	viper.SetDefault("sidewalk.verticalStreetWidth", 300)
	viper.SetDefault("sidewalk.horizontalStreetWidth", 200)

	viper.SetDefault("horizontalLane.x", 0)
	viper.SetDefault("horizontalLane.y", 345)
	viper.SetDefault("horizontalLane.width", 60)
	viper.SetDefault("horizontalLane.height", 10)

	viper.SetDefault("verticalLane.x", 595)
	viper.SetDefault("verticalLane.y", 0)
	viper.SetDefault("verticalLane.width", 10)
	viper.SetDefault("verticalLane.height", 60)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "trafficsignal")

	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "trafficsignal")
	viper.SetDefault("influx.bucket", "frames")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trafficsignal")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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

// GetMillis returns a duration config value. Strings are parsed as Go durations
// ("8ms", "5s"); numbers are taken as milliseconds.
func GetMillis(key string) (time.Duration, error) {
	switch v := viper.Get(key).(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	default:
		return time.Duration(viper.GetInt64(key)) * time.Millisecond, nil
	}
}

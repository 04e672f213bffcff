// Package config contains sockbridge Config and the code to load it.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/sockbridge/sockbridge/internal/configtypes"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP is a configuration for sockbridge HTTP server.
	HTTP configtypes.HTTPServer `mapstructure:"http_server" json:"http_server" toml:"http_server" yaml:"http_server"`
	// Log is a configuration for logging.
	Log configtypes.Log `mapstructure:"log" json:"log" toml:"log" yaml:"log"`
	// Client contains connection related configuration.
	Client configtypes.Client `mapstructure:"client" json:"client" toml:"client" yaml:"client"`
	// SockJS contains engine-wide protocol options.
	SockJS configtypes.SockJS `mapstructure:"sockjs" json:"sockjs" toml:"sockjs" yaml:"sockjs"`

	// Echo serves an application echoing every received message back.
	Echo configtypes.App `mapstructure:"echo" json:"echo" toml:"echo" yaml:"echo"`
	// Close serves an application closing every session immediately.
	Close configtypes.App `mapstructure:"close" json:"close" toml:"close" yaml:"close"`
	// DisabledWebsocketEcho serves echo with websocket transports turned off.
	DisabledWebsocketEcho configtypes.App `mapstructure:"disabled_websocket_echo" json:"disabled_websocket_echo" toml:"disabled_websocket_echo" yaml:"disabled_websocket_echo"`
	// CookieNeededEcho serves echo with JSESSIONID cookie emission on.
	CookieNeededEcho configtypes.App `mapstructure:"cookie_needed_echo" json:"cookie_needed_echo" toml:"cookie_needed_echo" yaml:"cookie_needed_echo"`

	// Prometheus metrics configuration.
	Prometheus configtypes.Prometheus `mapstructure:"prometheus" json:"prometheus" toml:"prometheus" yaml:"prometheus"`
	// Health check endpoint configuration.
	Health configtypes.Health `mapstructure:"health" json:"health" toml:"health" yaml:"health"`
	// Debug helps to enable Go profiling endpoints.
	Debug configtypes.Debug `mapstructure:"debug" json:"debug" toml:"debug" yaml:"debug"`

	// PidFile is a path to write a file with sockbridge process PID.
	PidFile string `mapstructure:"pid_file" json:"pid_file" toml:"pid_file" yaml:"pid_file"`
}

// defaults is a source of truth for configuration defaults, every known
// key must be present here so viper can see it during env lookup.
var defaults = map[string]any{
	"pid_file":                     "",
	"log.level":                    "info",
	"log.file":                     "",
	"http_server.address":          "",
	"http_server.port":             8080,
	"http_server.internal_address": "",
	"http_server.internal_port":    "",
	"http_server.shutdown_timeout": "30s",
	"client.allowed_origins":       []string{"*"},
	"client.connection_rate_limit": 0,

	"sockjs.url":                             "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js",
	"sockjs.heartbeat_interval":              "25s",
	"sockjs.session_timeout":                 "5s",
	"sockjs.sweep_interval":                  "1s",
	"sockjs.max_bytes_streaming":             131072,
	"sockjs.send_queue_max_size":             10485760,
	"sockjs.message_size_limit":              65536,
	"sockjs.receiver_conflict":               "reject",
	"sockjs.affinity_cookie":                 "JSESSIONID",
	"sockjs.write_timeout":                   "1s",
	"sockjs.websocket.read_buffer_size":      0,
	"sockjs.websocket.write_buffer_size":     0,
	"sockjs.websocket.use_write_buffer_pool": false,
	"sockjs.websocket.compression":           false,

	"echo.enabled":                                true,
	"echo.handler_prefix":                         "/echo",
	"echo.disable_websocket":                      false,
	"echo.cookie_needed":                          false,
	"echo.max_bytes_streaming":                    4096,
	"close.enabled":                               true,
	"close.handler_prefix":                        "/close",
	"close.disable_websocket":                     false,
	"close.cookie_needed":                         false,
	"close.max_bytes_streaming":                   0,
	"disabled_websocket_echo.enabled":             false,
	"disabled_websocket_echo.handler_prefix":      "/disabled_websocket_echo",
	"disabled_websocket_echo.disable_websocket":   true,
	"disabled_websocket_echo.cookie_needed":       false,
	"disabled_websocket_echo.max_bytes_streaming": 4096,
	"cookie_needed_echo.enabled":                  false,
	"cookie_needed_echo.handler_prefix":           "/cookie_needed_echo",
	"cookie_needed_echo.disable_websocket":        false,
	"cookie_needed_echo.cookie_needed":            true,
	"cookie_needed_echo.max_bytes_streaming":      4096,

	"prometheus.enabled":        false,
	"prometheus.handler_prefix": "/metrics",
	"health.enabled":            false,
	"health.handler_prefix":     "/health",
	"debug.enabled":             false,
	"debug.handler_prefix":      "/debug/pprof",
}

type Meta struct {
	FileNotFound bool
	UnknownKeys  []string
}

func DefineFlags(rootCmd *cobra.Command) {
	rootCmd.Flags().StringP("pid_file", "", "", "optional path to create PID file")
	rootCmd.Flags().StringP("http_server.address", "a", "", "interface address to listen on")
	rootCmd.Flags().IntP("http_server.port", "p", 8080, "port to bind HTTP server to")
	rootCmd.Flags().StringP("http_server.internal_address", "", "", "custom interface address to listen on for internal endpoints")
	rootCmd.Flags().StringP("http_server.internal_port", "", "", "custom port for internal endpoints")
	rootCmd.Flags().StringP("log.level", "", "info", "set the log level: trace, debug, info, warn, error, fatal or none")
	rootCmd.Flags().StringP("log.file", "", "", "optional log file - if not specified logs go to STDOUT")
	rootCmd.Flags().BoolP("debug.enabled", "", false, "enable debug endpoints")
	rootCmd.Flags().BoolP("prometheus.enabled", "", false, "enable Prometheus metrics endpoint")
	rootCmd.Flags().BoolP("health.enabled", "", false, "enable health check endpoint")
	rootCmd.Flags().BoolP("echo.enabled", "", true, "enable echo application endpoint")
	rootCmd.Flags().BoolP("close.enabled", "", true, "enable close application endpoint")
	rootCmd.Flags().BoolP("disabled_websocket_echo.enabled", "", false, "enable echo application with websocket transports off")
	rootCmd.Flags().BoolP("cookie_needed_echo.enabled", "", false, "enable echo application with JSESSIONID cookie emission")
}

func GetConfig(cmd *cobra.Command, configFile string) (Config, Meta, error) {
	v := viper.NewWithOptions(viper.WithDecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(" "),
		configtypes.StringToDurationHookFunc(),
	)))

	for k, value := range defaults {
		v.SetDefault(k, value)
	}

	if cmd != nil {
		bindPFlags := []string{
			"pid_file", "http_server.port", "http_server.address", "http_server.internal_port",
			"http_server.internal_address", "log.level", "log.file", "debug.enabled",
			"prometheus.enabled", "health.enabled", "echo.enabled", "close.enabled",
			"disabled_websocket_echo.enabled", "cookie_needed_echo.enabled",
		}
		for _, flag := range bindPFlags {
			_ = v.BindPFlag(flag, cmd.Flags().Lookup(flag))
		}
	}

	v.SetEnvPrefix("SOCKBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	meta := Meta{}

	if configFile != "" {
		v.SetConfigFile(configFile)
		err := v.ReadInConfig()
		if err != nil {
			var configFileNotFoundError *os.PathError
			if errors.As(err, &configFileNotFoundError) {
				meta.FileNotFound = true
			} else {
				return Config{}, Meta{}, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	conf := &Config{}

	err := v.Unmarshal(conf)
	if err != nil {
		return Config{}, Meta{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	meta.UnknownKeys = findUnknownKeys(v.AllSettings(), conf, "")

	return *conf, meta, nil
}

// Validate checks config for common mistakes which are better to catch
// on start rather than observe at runtime.
func (c Config) Validate() error {
	switch c.SockJS.ReceiverConflict {
	case "reject", "evict":
	default:
		return fmt.Errorf("unknown sockjs.receiver_conflict: %q, must be \"reject\" or \"evict\"", c.SockJS.ReceiverConflict)
	}
	if c.SockJS.MaxBytesStreaming <= 0 {
		return errors.New("sockjs.max_bytes_streaming must be positive")
	}
	if c.SockJS.SendQueueMaxSize <= 0 {
		return errors.New("sockjs.send_queue_max_size must be positive")
	}
	for _, app := range []configtypes.App{c.Echo, c.Close, c.DisabledWebsocketEcho, c.CookieNeededEcho} {
		if !app.Enabled {
			continue
		}
		if !strings.HasPrefix(app.HandlerPrefix, "/") {
			return fmt.Errorf("application handler_prefix must start with /, got %q", app.HandlerPrefix)
		}
	}
	return nil
}

// findValidKeys finds valid keys in a struct by its mapstructure tags.
func findValidKeys(typ reflect.Type, validKeys map[string]reflect.StructField) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag != "" && tag != ",squash" {
			validKeys[tag] = field
		}
	}
}

// findUnknownKeys returns config map keys which do not match any known
// Config field, so typos in config files can be reported on start.
func findUnknownKeys(data map[string]interface{}, configStruct interface{}, parentKey string) []string {
	var unknownKeys []string
	val := reflect.ValueOf(configStruct)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	validKeys := make(map[string]reflect.StructField)
	findValidKeys(typ, validKeys)

	for key, value := range data {
		field, exists := validKeys[key]
		if !exists {
			unknownKeys = append(unknownKeys, appendKeyPath(parentKey, key))
			continue
		}
		fieldValue := val.FieldByName(field.Name)
		if fieldValue.Kind() == reflect.Struct {
			if nestedMap, ok := value.(map[string]interface{}); ok {
				unknownKeys = append(unknownKeys, findUnknownKeys(nestedMap, fieldValue.Addr().Interface(), appendKeyPath(parentKey, key))...)
			}
		}
	}

	return unknownKeys
}

func appendKeyPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// DefaultConfig is a helper to be used in tests.
func DefaultConfig() Config {
	conf, _, err := GetConfig(nil, "")
	if err != nil {
		panic("error during getting default config: " + err.Error())
	}
	return conf
}

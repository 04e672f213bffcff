package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func getConfig(t *testing.T, configFile string) (Config, Meta) {
	t.Helper()
	conf, meta, err := GetConfig(nil, configFile)
	require.NoError(t, err)
	return conf, meta
}

func checkConfig(t *testing.T, conf Config) {
	t.Helper()
	require.Equal(t, 9000, conf.HTTP.Port)
	require.Len(t, conf.Client.AllowedOrigins, 1)
	require.Equal(t, "http://localhost:3000", conf.Client.AllowedOrigins[0])
	require.Equal(t, "evict", conf.SockJS.ReceiverConflict)
	require.Equal(t, 10*time.Second, conf.SockJS.HeartbeatInterval.ToDuration())
	require.Equal(t, 8192, conf.Echo.MaxBytesStreaming)
	require.True(t, conf.CookieNeededEcho.Enabled)
	// Values not mentioned in the file keep their defaults.
	require.True(t, conf.Close.Enabled)
	require.Equal(t, "JSESSIONID", conf.SockJS.AffinityCookie)
	require.Equal(t, "/echo", conf.Echo.HandlerPrefix)
}

func TestConfigJSON(t *testing.T) {
	conf, meta := getConfig(t, "testdata/config.json")
	checkConfig(t, conf)
	require.False(t, meta.FileNotFound)
	require.Len(t, meta.UnknownKeys, 0)
}

func TestConfigYAML(t *testing.T) {
	conf, _ := getConfig(t, "testdata/config.yaml")
	checkConfig(t, conf)
}

func TestConfigTOML(t *testing.T) {
	conf, _ := getConfig(t, "testdata/config.toml")
	checkConfig(t, conf)
}

func TestConfigFileNotFound(t *testing.T) {
	conf, meta, err := GetConfig(nil, "testdata/does_not_exist.json")
	require.NoError(t, err)
	require.True(t, meta.FileNotFound)
	// Defaults still apply.
	require.Equal(t, 8080, conf.HTTP.Port)
}

func TestConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0644))
	_, _, err := GetConfig(nil, path)
	require.Error(t, err)
}

func TestConfigUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"sockjs": {"hartbeat_interval": "10s"}, "mystery": true}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, meta, err := GetConfig(nil, path)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sockjs.hartbeat_interval", "mystery"}, meta.UnknownKeys)
}

func TestConfigEnvVars(t *testing.T) {
	_ = os.Setenv("SOCKBRIDGE_HTTP_SERVER_PORT", "9100")
	_ = os.Setenv("SOCKBRIDGE_CLIENT_ALLOWED_ORIGINS", "* http://localhost:4000")
	_ = os.Setenv("SOCKBRIDGE_SOCKJS_SESSION_TIMEOUT", "30s")
	defer func() {
		_ = os.Unsetenv("SOCKBRIDGE_HTTP_SERVER_PORT")
		_ = os.Unsetenv("SOCKBRIDGE_CLIENT_ALLOWED_ORIGINS")
		_ = os.Unsetenv("SOCKBRIDGE_SOCKJS_SESSION_TIMEOUT")
	}()
	conf, _ := getConfig(t, "testdata/config.json")
	// Environment wins over the file.
	require.Equal(t, 9100, conf.HTTP.Port)
	require.Equal(t, []string{"*", "http://localhost:4000"}, conf.Client.AllowedOrigins)
	require.Equal(t, 30*time.Second, conf.SockJS.SessionTimeout.ToDuration())
}

func TestConfigFlags(t *testing.T) {
	cmd := &cobra.Command{}
	DefineFlags(cmd)
	require.NoError(t, cmd.Flags().Set("http_server.port", "7000"))
	require.NoError(t, cmd.Flags().Set("close.enabled", "false"))
	conf, _, err := GetConfig(cmd, "")
	require.NoError(t, err)
	require.Equal(t, 7000, conf.HTTP.Port)
	require.False(t, conf.Close.Enabled)
	require.True(t, conf.Echo.Enabled)
}

func TestConfigValidateDefault(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidateReceiverConflict(t *testing.T) {
	tests := []struct {
		name     string
		conflict string
		wantErr  bool
	}{
		{name: "reject is valid", conflict: "reject", wantErr: false},
		{name: "evict is valid", conflict: "evict", wantErr: false},
		{name: "empty string is invalid", conflict: "", wantErr: true},
		{name: "unknown policy is invalid", conflict: "drop", wantErr: true},
		{name: "case matters", conflict: "REJECT", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SockJS.ReceiverConflict = tt.conflict
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "receiver_conflict")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SockJS.MaxBytesStreaming = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_bytes_streaming")

	cfg = DefaultConfig()
	cfg.SockJS.SendQueueMaxSize = -1
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "send_queue_max_size")
}

func TestConfigValidateHandlerPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Echo.HandlerPrefix = "echo"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "handler_prefix")

	// A disabled application is not validated.
	cfg = DefaultConfig()
	cfg.DisabledWebsocketEcho.HandlerPrefix = "nope"
	require.NoError(t, cfg.Validate())
}

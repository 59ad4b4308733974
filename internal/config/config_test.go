package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleINI = `
[server]
http_port = 8080
https_port = 8443
threads = 4
enable_ssl = true

[ssl]
cert_path = certs/server.pem
key_path = certs/server.key

[logging]
basename = reactorkv
roll_size_mb = 32
flush_interval_sec = 2
log_level = DEBUG

[routes]
echo = GET, /echo, echo
get_key = GET, /kv/:key, kv_get
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "server.ini")
	require.NoError(t, os.WriteFile(path, []byte(sampleINI), 0644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeSample(t)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ServerConfig{
		HTTPPort:  8080,
		HTTPSPort: 8443,
		Threads:   4,
		EnableSSL: true,
	}, cfg.Server)

	require.Equal(t, SSLConfig{
		CertPath: "certs/server.pem",
		KeyPath:  "certs/server.key",
	}, cfg.SSL)

	require.Equal(t, "DEBUG", cfg.Logging.LogLevel)
	require.Equal(t, 32, cfg.Logging.RollSizeMB)

	require.Len(t, cfg.Routes, 2)
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.Error(t, err)
}

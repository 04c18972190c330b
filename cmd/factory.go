package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kmkrofficial/signature/internal/cliconfig"
	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the signature server to connect to.
	RemoteAddr string

	// ConfigPath is the server configuration file (serve, config validate).
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// ServerAddr returns the remote server address from flag, config or env.
func (f *Factory) ServerAddr() (string, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(ServerAddrKey) // prio 2: config/env
	}
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set SIGNATURE_ADDR)")
	}
	return server, nil
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server, err := f.ServerAddr()
	if err != nil {
		return nil, err
	}

	var token string
	cfg, err := cliconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
		token = cred.Token
	} else if !errors.Is(err, cliconfig.ErrCredentialNotFound) {
		return nil, err
	}

	if envToken := os.Getenv("SIGNATURE_TOKEN"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadServerConfig() (*config.Config, error) {
	path := f.ConfigPath
	if path == "" {
		path = viper.GetString(ConfigFileKey)
	}
	if path == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set SIGNATURE_CONFIG)")
	}
	return config.Load(path)
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The signature server config file to use")
}

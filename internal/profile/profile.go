package profile

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the message worker.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the dashboard stream server
	Addr string
	// Port is the binding port for the dashboard stream server
	Port int
	// Data is the data directory
	Data string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where the worker stores its data
	DSN string
	// Version is the current version of the worker
	Version string

	// AI provider configuration
	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	// Channel gateway configuration (outbound sends)
	ChannelBaseURL string
	ChannelAPIKey  string

	// DashboardJWTSecret signs/verifies dashboard stream tokens
	DashboardJWTSecret string

	// WorkerConcurrency is the number of conversation lanes processed in parallel
	WorkerConcurrency int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate checks the profile for required values and normalizes defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		if p.Data == "" {
			p.Data = "."
		}
		p.DSN = fmt.Sprintf("%s/atendai_%s.db", p.Data, p.Mode)
	}
	if p.AIAPIKey == "" {
		return errors.New("ai api key is required")
	}
	if p.WorkerConcurrency <= 0 {
		p.WorkerConcurrency = 8
	}
	return nil
}

// FromViper builds a profile from the given viper instance. Values come from
// flags bound by the caller and from ATENDAI_* environment variables.
func FromViper(v *viper.Viper) (*Profile, error) {
	v.SetEnvPrefix("atendai")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	p := &Profile{
		Mode:               v.GetString("mode"),
		Addr:               v.GetString("addr"),
		Port:               v.GetInt("port"),
		Data:               v.GetString("data"),
		Driver:             v.GetString("driver"),
		DSN:                v.GetString("dsn"),
		AIBaseURL:          v.GetString("ai-base-url"),
		AIAPIKey:           v.GetString("ai-api-key"),
		AIModel:            v.GetString("ai-model"),
		ChannelBaseURL:     v.GetString("channel-base-url"),
		ChannelAPIKey:      v.GetString("channel-api-key"),
		DashboardJWTSecret: v.GetString("dashboard-jwt-secret"),
		WorkerConcurrency:  v.GetInt("worker-concurrency"),
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}

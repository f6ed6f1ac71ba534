package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Cassandra struct {
	Hosts             []string      `yaml:"hosts" mapstructure:"hosts" validate:"required,min=1"`
	Username          string        `yaml:"username" mapstructure:"username" envconfig:"username"`
	Password          string        `yaml:"password" mapstructure:"password" envconfig:"password"`
	Keyspace          string        `yaml:"keyspace" mapstructure:"keyspace" validate:"required"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ConnectTimeout    time.Duration `yaml:"connectTimeout" mapstructure:"connectTimeout"`
	KeepAlive         time.Duration `yaml:"keepAlive" mapstructure:"keepAlive"`
	NumConns          int           `yaml:"numConns" mapstructure:"numConns"`
	MaxPreparedStmts  int           `yaml:"maxPreparedStmts" mapstructure:"maxPreparedStmts"`
	MaxRoutingKeyInfo int           `yaml:"maxRoutingKeyInfo" mapstructure:"maxRoutingKeyInfo"`
	PageSize          int           `yaml:"pageSize" mapstructure:"pageSize"`
	Consistency       string        `yaml:"consistency" mapstructure:"consistency"`
	SerialConsistency string        `yaml:"serialConsistency" mapstructure:"serialConsistency"`
	RetryPolicy       struct {
		NumRetries    int           `yaml:"numRetries" mapstructure:"numRetries"`
		MinRetryDelay time.Duration `yaml:"minRetryDelay" mapstructure:"minRetryDelay"`
		MaxRetryDelay time.Duration `yaml:"maxRetryDelay" mapstructure:"maxRetryDelay"`
	} `yaml:"retryPolicy" mapstructure:"retryPolicy"`
	Compressor string `yaml:"compressor" mapstructure:"compressor"`
	SSL        struct {
		Enable             bool   `yaml:"enable" mapstructure:"enable"`
		CertPath           string `yaml:"certPath" mapstructure:"certPath"`
		KeyPath            string `yaml:"keyPath" mapstructure:"keyPath"`
		CaPath             string `yaml:"caPath" mapstructure:"caPath"`
		InsecureSkipVerify bool   `yaml:"insecureSkipVerify" mapstructure:"insecureSkipVerify"`
	} `yaml:"ssl" mapstructure:"ssl"`
}

// ExecutionProfile is a named bundle of statement execution settings.
// Statements select one by name through their options.
type ExecutionProfile struct {
	Consistency       string `yaml:"consistency" mapstructure:"consistency"`
	SerialConsistency string `yaml:"serialConsistency" mapstructure:"serialConsistency"`
	PageSize          int    `yaml:"pageSize" mapstructure:"pageSize"`
	Idempotent        bool   `yaml:"idempotent" mapstructure:"idempotent"`
	Tracing           bool   `yaml:"tracing" mapstructure:"tracing"`
}

// Engine is the full engine configuration.
type Engine struct {
	Cassandra Cassandra `yaml:"cassandra" mapstructure:"cassandra"`
	// ExecutionProfiles are resolved by the executor when a statement names
	// one.
	ExecutionProfiles map[string]ExecutionProfile `yaml:"executionProfiles" mapstructure:"executionProfiles"`
	// PreparedStatements marks generated statements as eligible for
	// prepared-statement binding; when false all values render as inline
	// literals.
	PreparedStatements bool `yaml:"preparedStatements" mapstructure:"preparedStatements"`
	// KeyspaceStrategy selects how statement keyspaces resolve: "entity"
	// prefers the entity-declared keyspace, "session" leaves table names
	// unqualified.
	KeyspaceStrategy string `yaml:"keyspaceStrategy" mapstructure:"keyspaceStrategy" validate:"omitempty,oneof=entity session"`
	// AppPort is the listen address of the monitoring server, empty to
	// disable it.
	AppPort string `yaml:"appPort" mapstructure:"appPort"`
}

func (c *Cassandra) setDefaults() {
	validConsistencies := map[string]bool{
		"ANY":          true,
		"ONE":          true,
		"TWO":          true,
		"THREE":        true,
		"QUORUM":       true,
		"ALL":          true,
		"LOCAL_QUORUM": true,
		"EACH_QUORUM":  true,
		"LOCAL_ONE":    true,
	}

	consistency := strings.TrimSpace(strings.ToUpper(c.Consistency))
	if consistency == "" || !validConsistencies[consistency] {
		c.Consistency = "QUORUM"
	} else {
		c.Consistency = consistency
	}

	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.NumConns <= 0 {
		c.NumConns = 2
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.MaxPreparedStmts <= 0 {
		c.MaxPreparedStmts = 1000
	}
	if c.PageSize <= 0 {
		c.PageSize = 5000
	}
	if c.RetryPolicy.NumRetries <= 0 {
		c.RetryPolicy.NumRetries = 3
	}
	if c.RetryPolicy.MinRetryDelay <= 0 {
		c.RetryPolicy.MinRetryDelay = 100 * time.Millisecond
	}
	if c.RetryPolicy.MaxRetryDelay <= 0 {
		c.RetryPolicy.MaxRetryDelay = 1 * time.Second
	}
}

func (c *Engine) ApplyDefaults() {
	c.Cassandra.setDefaults()
	if c.KeyspaceStrategy == "" {
		c.KeyspaceStrategy = "entity"
	}
}

// Validate checks the config after defaults have been applied.
func (c *Engine) Validate() error {
	return validator.New().Struct(c)
}

// Load reads an engine config from a yaml file, overlays CASSANDRA_*
// environment variables (credentials typically arrive that way), applies
// defaults and validates.
func Load(path string) (*Engine, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Engine
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process("cassandra", &cfg.Cassandra); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package bsrv

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	readinessCheckPath() string
	metricsPath() string
	logLevel() zapcore.Level
	otelExporter() string
	siteConfig() string
	requestTimeout() time.Duration
	fragmentCacheTTL() time.Duration
	maxSubrequests() int
	gatewayAccessLogGroup() string
}

// BaseEnvironment contains the environment variables every bsplice server reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port               int           `env:"BS_PORT,required"`
	ServiceName        string        `env:"BS_SERVICE_NAME,required"`
	ReadinessCheckPath string        `env:"BS_READINESS_CHECK_PATH" envDefault:"/health"`
	MetricsPath        string        `env:"BS_METRICS_PATH" envDefault:"/metrics"`
	LogLevel           zapcore.Level `env:"BS_LOG_LEVEL" envDefault:"info"`
	OtelExporter       string        `env:"BS_OTEL_EXPORTER" envDefault:"stdout"`
	// SiteConfig is the path of the YAML file describing locations and what is added to their pages.
	SiteConfig string `env:"BS_SITE_CONFIG,required"`
	// RequestTimeout bounds every request, including the nested requests started for it.
	RequestTimeout time.Duration `env:"BS_REQUEST_TIMEOUT" envDefault:"30s"`
	// FragmentCacheTTL is how long fragments from external origins are kept, 0 disables the cache.
	FragmentCacheTTL time.Duration `env:"BS_FRAGMENT_CACHE_TTL" envDefault:"1m"`
	MaxSubrequests   int           `env:"BS_MAX_SUBREQUESTS" envDefault:"50"`
	// GatewayAccessLogGroup is the CloudWatch Log Group name for API Gateway
	// access logs. When set, traces include this log group for X-Ray log
	// correlation.
	GatewayAccessLogGroup string `env:"BS_GATEWAY_ACCESS_LOG_GROUP"`
}

func (e BaseEnvironment) port() int {
	return e.Port
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) readinessCheckPath() string {
	return e.ReadinessCheckPath
}

func (e BaseEnvironment) metricsPath() string {
	return e.MetricsPath
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) siteConfig() string {
	return e.SiteConfig
}

func (e BaseEnvironment) requestTimeout() time.Duration {
	return e.RequestTimeout
}

func (e BaseEnvironment) fragmentCacheTTL() time.Duration {
	return e.FragmentCacheTTL
}

func (e BaseEnvironment) maxSubrequests() int {
	return e.MaxSubrequests
}

func (e BaseEnvironment) gatewayAccessLogGroup() string {
	return e.GatewayAccessLogGroup
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		return e, nil
	}
}

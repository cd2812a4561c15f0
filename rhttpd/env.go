package rhttpd

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must
// implement. Embed [BaseEnvironment] in your struct to satisfy it.
type Environment interface {
	port() int
	serviceName() string
	logLevel() zapcore.Level
	encoding() string
	exposeErrorDetail() bool
	readTimeout() time.Duration
	writeTimeout() time.Duration
	idleTimeout() time.Duration
}

// BaseEnvironment contains the required rhttpd environment variables. Embed
// this in your custom environment struct.
type BaseEnvironment struct {
	Port        int           `env:"RHTTP_PORT,required"`
	ServiceName string        `env:"RHTTP_SERVICE_NAME" envDefault:"rhttpd"`
	LogLevel    zapcore.Level `env:"RHTTP_LOG_LEVEL" envDefault:"info"`
	Encoding    string        `env:"RHTTP_ENCODING" envDefault:"utf-8"`

	// ExposeErrorDetail reveals envelope detail (stack traces, body
	// excerpts) to clients. Keep it off outside development.
	ExposeErrorDetail bool `env:"RHTTP_EXPOSE_ERROR_DETAIL" envDefault:"false"`

	ReadTimeout  time.Duration `env:"RHTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"RHTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"RHTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

func (e BaseEnvironment) port() int                  { return e.Port }
func (e BaseEnvironment) serviceName() string        { return e.ServiceName }
func (e BaseEnvironment) logLevel() zapcore.Level    { return e.LogLevel }
func (e BaseEnvironment) encoding() string           { return e.Encoding }
func (e BaseEnvironment) exposeErrorDetail() bool    { return e.ExposeErrorDetail }
func (e BaseEnvironment) readTimeout() time.Duration { return e.ReadTimeout }
func (e BaseEnvironment) writeTimeout() time.Duration {
	return e.WriteTimeout
}
func (e BaseEnvironment) idleTimeout() time.Duration { return e.IdleTimeout }

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

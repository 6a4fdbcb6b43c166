// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the configuration of the datalink commands from
// flags, environment variables and configuration files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// current working dir
	searchPath1 = "."
	// home datadir
	searchPath2 = "$HOME/.datalink/"

	// name for the config file. Does not include extension.
	configFileName = "datalink"

	envPrefix = "DATALINK"
)

// Registry stores all loaded configurations.
type Registry struct {
	UsedConfigFile string `mapstructure:"-"`

	Client ClientConfiguration `mapstructure:"client"`
	Server ServerConfiguration `mapstructure:"server"`
	Logger LoggerConfiguration `mapstructure:"logger"`
}

// ClientConfiguration configures the data client.
type ClientConfiguration struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Requests   int           `mapstructure:"requests"`
	Payload    string        `mapstructure:"payload"`
	Timeout    time.Duration `mapstructure:"timeout"`
	DialRetry  time.Duration `mapstructure:"dial-retry"`
	MaxRetries int           `mapstructure:"max-retries"`
	Reconnect  bool          `mapstructure:"reconnect"`
}

// ServerConfiguration configures the data server.
type ServerConfiguration struct {
	Endpoint string `mapstructure:"endpoint"`

	// Handler is echo or mpl3115a2.
	Handler    string `mapstructure:"handler"`
	EchoPrefix string `mapstructure:"echo-prefix"`
	Adapter    int    `mapstructure:"adapter"`

	// RateLimit is in requests per second, 0 for no limit.
	RateLimit float64 `mapstructure:"rate-limit"`
	Burst     int     `mapstructure:"burst"`

	// MaxRequests stops the server after that many replies, 0 for no limit.
	MaxRequests int `mapstructure:"max-requests"`

	// MaxMsgSize is the largest accepted request, in bytes.
	MaxMsgSize int64 `mapstructure:"max-msg-size"`
}

// LoggerConfiguration configures the standard logger.
type LoggerConfiguration struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Apply configures log.
func (cfg LoggerConfiguration) Apply(log *logrus.Logger) error {
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, "config: invalid logger level")
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("config: invalid logger format %q", cfg.Format)
	}

	log.SetLevel(lvl)
	return nil
}

var defaults = map[string]interface{}{
	"client.endpoint":    "tcp://localhost:5555",
	"client.requests":    10,
	"client.payload":     "Can I please have data?",
	"client.timeout":     time.Duration(0),
	"client.dial-retry":  250 * time.Millisecond,
	"client.max-retries": -1,
	"client.reconnect":   false,

	"server.endpoint":     "tcp://*:5555",
	"server.handler":      "echo",
	"server.echo-prefix":  "ECHO:",
	"server.adapter":      1,
	"server.rate-limit":   0.0,
	"server.burst":        1,
	"server.max-requests": 0,
	"server.max-msg-size": int64(1 << 20),

	"logger.level":  "info",
	"logger.format": "text",
}

// LoadClient loads the data client configuration, parsing args as its
// command line flags.
//
// It uses the following precedence order. Each item takes precedence over
// the item below it:
//   - flag
//   - env
//   - config
//   - default
func LoadClient(args []string) (Registry, error) {
	return load("data-client", args, defineClientFlags)
}

// LoadServer loads the data server configuration, parsing args as its
// command line flags. See LoadClient for the precedence order.
func LoadServer(args []string) (Registry, error) {
	return load("data-server", args, defineServerFlags)
}

func load(name string, args []string, define func(fs *pflag.FlagSet) map[string]string) (Registry, error) {
	var r Registry

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	keys := define(fs)
	keys["log-level"] = "logger.level"
	keys["log-format"] = "logger.format"
	fs.String("log-level", v.GetString("logger.level"), "logger level (trace, debug, info, warn, error)")
	fs.String("log-format", v.GetString("logger.format"), "logger format (text, json)")
	confFile := fs.String("config", "", "path to the config file")

	if err := fs.Parse(args); err != nil {
		return r, err
	}

	// Bind all command line parameters to their corresponding file configs
	// e.g. --endpoint overrides [client] endpoint.
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return r, errors.Wrapf(err, "config: could not bind flag %q", flag)
		}
	}

	// e.g. DATALINK_CLIENT_DIAL_RETRY overrides [client] dial-retry.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if *confFile != "" {
		v.SetConfigFile(*confFile)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(searchPath1)
		v.AddConfigPath(searchPath2)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *confFile != "" || !errors.As(err, &notFound) {
			return r, errors.Wrap(err, "config: could not read config file")
		}
	}

	if err := v.Unmarshal(&r); err != nil {
		return r, errors.Wrap(err, "config: unable to decode configuration")
	}
	r.UsedConfigFile = v.ConfigFileUsed()

	return r, nil
}

func defineClientFlags(fs *pflag.FlagSet) map[string]string {
	fs.String("endpoint", defaults["client.endpoint"].(string), "remote end-point of the data server")
	fs.Int("requests", defaults["client.requests"].(int), "number of requests to send")
	fs.String("payload", defaults["client.payload"].(string), "content of the requests")
	fs.Duration("timeout", 0, "timeout of connections and replies (0 waits forever)")
	fs.Duration("dial-retry", defaults["client.dial-retry"].(time.Duration), "delay between dial attempts")
	fs.Int("max-retries", defaults["client.max-retries"].(int), "number of dial retries (-1 for no limit)")
	fs.Bool("reconnect", false, "redial a lost connection")

	return map[string]string{
		"endpoint":    "client.endpoint",
		"requests":    "client.requests",
		"payload":     "client.payload",
		"timeout":     "client.timeout",
		"dial-retry":  "client.dial-retry",
		"max-retries": "client.max-retries",
		"reconnect":   "client.reconnect",
	}
}

func defineServerFlags(fs *pflag.FlagSet) map[string]string {
	fs.String("endpoint", defaults["server.endpoint"].(string), "local end-point to listen on")
	fs.String("handler", defaults["server.handler"].(string), "request handler (echo, mpl3115a2)")
	fs.String("echo-prefix", defaults["server.echo-prefix"].(string), "prefix of the echo handler replies")
	fs.Int("adapter", defaults["server.adapter"].(int), "I2C adapter of the mpl3115a2 handler")
	fs.Float64("rate-limit", 0, "maximum number of requests per second (0 for no limit)")
	fs.Int("burst", defaults["server.burst"].(int), "burst size of the rate limit")
	fs.Int("max-requests", 0, "stop after this number of replies (0 for no limit)")
	fs.Int64("max-msg-size", defaults["server.max-msg-size"].(int64), "largest accepted request, in bytes")

	return map[string]string{
		"endpoint":     "server.endpoint",
		"handler":      "server.handler",
		"echo-prefix":  "server.echo-prefix",
		"adapter":      "server.adapter",
		"rate-limit":   "server.rate-limit",
		"burst":        "server.burst",
		"max-requests": "server.max-requests",
		"max-msg-size": "server.max-msg-size",
	}
}

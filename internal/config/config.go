/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package config reads the controller's runtime configuration from the
// environment. There are no required command-line flags: every setting
// here is an environment variable, consumed once at startup by
// cmd/controller.
//
// EDIT THIS FILE!  New settings belong here, not scattered across
// cmd/controller or the reconciler.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	envDomain           = "EPHEMERON_DOMAIN"
	envLogLevel         = "RUST_LOG"
	envWorkers          = "EPHEMERON_WORKERS"
	envShutdownTimeout  = "EPHEMERON_SHUTDOWN_TIMEOUT"
	envRequestTimeout   = "EPHEMERON_REQUEST_TIMEOUT"
	envReconcileTimeout = "EPHEMERON_RECONCILE_TIMEOUT"
	envResyncInterval   = "EPHEMERON_RESYNC_INTERVAL"
	envTLSScheme        = "EPHEMERON_TLS_SCHEME"
)

const (
	defaultLogLevel         = "info"
	defaultWorkers          = 2
	defaultShutdownTimeout  = 10 * time.Second
	defaultRequestTimeout   = 30 * time.Second
	defaultReconcileTimeout = 60 * time.Second
	defaultResyncInterval   = 5 * time.Minute
	defaultTLSScheme        = "https"
)

// Config holds the controller's startup configuration, sourced entirely
// from the environment.
type Config struct {
	// Domain is the base domain Ephemeron hostnames are built under, e.g.
	// "<name>.<Domain>".
	Domain string

	// LogLevel is the RUST_LOG-style level name ("debug", "info", "warn",
	// "error"). Use ZapLevel to convert it for sigs.k8s.io/controller-runtime.
	LogLevel string

	// Workers is the reconciler's MaxConcurrentReconciles.
	Workers int

	// ShutdownTimeout bounds how long the manager waits for in-flight
	// reconciles to drain after a termination signal.
	ShutdownTimeout time.Duration

	// RequestTimeout bounds a single Kubernetes API call.
	RequestTimeout time.Duration

	// ReconcileTimeout bounds a single Reconcile call end to end.
	ReconcileTimeout time.Duration

	// ResyncInterval is the informer cache's periodic full resync period.
	ResyncInterval time.Duration

	// TLSScheme is the scheme ("http" or "https") used for the host
	// annotation when an Ephemeron has no tlsSecretName.
	TLSScheme string
}

// Load reads Config from the environment. Domain is required and must be
// a valid DNS-1123 subdomain; every other setting falls back to a
// default when unset. A malformed value is a fatal configuration error,
// returned rather than defaulted, since starting the manager with a bad
// setting would misbehave silently. RUST_LOG is the exception: it is not
// checked here, and ZapLevel maps an unrecognized level to info.
func Load() (*Config, error) {
	domain := os.Getenv(envDomain)
	if domain == "" {
		return nil, fmt.Errorf("config: %s is required", envDomain)
	}
	if errs := validation.IsDNS1123Subdomain(domain); len(errs) > 0 {
		return nil, fmt.Errorf("config: %s %q is not a valid domain: %s", envDomain, domain, errs[0])
	}

	workers, err := intEnvOrDefault(envWorkers, defaultWorkers)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := durationEnvOrDefault(envShutdownTimeout, defaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := durationEnvOrDefault(envRequestTimeout, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}

	reconcileTimeout, err := durationEnvOrDefault(envReconcileTimeout, defaultReconcileTimeout)
	if err != nil {
		return nil, err
	}

	resyncInterval, err := durationEnvOrDefault(envResyncInterval, defaultResyncInterval)
	if err != nil {
		return nil, err
	}

	tlsScheme := stringEnvOrDefault(envTLSScheme, defaultTLSScheme)
	if tlsScheme != "http" && tlsScheme != "https" {
		return nil, fmt.Errorf("config: %s must be %q or %q, got %q", envTLSScheme, "http", "https", tlsScheme)
	}

	return &Config{
		Domain:           domain,
		LogLevel:         stringEnvOrDefault(envLogLevel, defaultLogLevel),
		Workers:          workers,
		ShutdownTimeout:  shutdownTimeout,
		RequestTimeout:   requestTimeout,
		ReconcileTimeout: reconcileTimeout,
		ResyncInterval:   resyncInterval,
		TLSScheme:        tlsScheme,
	}, nil
}

// ZapLevel converts LogLevel to a zapcore.Level for
// sigs.k8s.io/controller-runtime/pkg/log/zap. RUST_LOG's "trace" has no
// zapcore equivalent and maps to debug; an unrecognized level maps to
// info rather than erroring, since log verbosity is not worth failing
// startup over.
func (c *Config) ZapLevel() zapcore.Level {
	switch c.LogLevel {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func stringEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnvOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func durationEnvOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s is not a valid duration: %w", key, err)
	}
	return d, nil
}

package bsrvtest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bsrv.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all [bsrv.BaseEnvironment] env vars to sensible test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BS_SERVICE_NAME: "test"
//   - BS_READINESS_CHECK_PATH: "/health"
//   - BS_SITE_CONFIG: an empty site in a temporary directory
//   - BS_OTEL_EXPORTER: "none"
//   - BS_FRAGMENT_CACHE_TTL: "0s"
//   - AWS_REGION: "us-east-1"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	bsrvtest.SetBaseEnv(t, 18085).ServiceName("docs").MaxSubrequests(2)
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BS_PORT", strconv.Itoa(port))
	t.Setenv("BS_SERVICE_NAME", "test")
	t.Setenv("BS_READINESS_CHECK_PATH", "/health")
	t.Setenv("BS_OTEL_EXPORTER", "none")
	t.Setenv("BS_FRAGMENT_CACHE_TTL", "0s")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	e := &Env{t: t}
	return e.Site("{}")
}

// Site writes the YAML site configuration to a temporary file and points BS_SITE_CONFIG at it.
func (e *Env) Site(yaml string) *Env {
	e.t.Helper()
	path := filepath.Join(e.t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		e.t.Fatalf("bsrvtest: write site config: %v", err)
	}
	e.t.Setenv("BS_SITE_CONFIG", path)
	return e
}

// ServiceName overrides BS_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_SERVICE_NAME", name)
	return e
}

// ReadinessCheckPath overrides BS_READINESS_CHECK_PATH.
func (e *Env) ReadinessCheckPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_READINESS_CHECK_PATH", path)
	return e
}

// MaxSubrequests overrides BS_MAX_SUBREQUESTS.
func (e *Env) MaxSubrequests(n int) *Env {
	e.t.Helper()
	e.t.Setenv("BS_MAX_SUBREQUESTS", strconv.Itoa(n))
	return e
}

// RequestTimeout overrides BS_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_REQUEST_TIMEOUT", d)
	return e
}

package bsrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advdv/bsplice"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	level   zapcore.Level
	otelExp string
}

func (e testEnv) port() int                  { return 8080 }
func (e testEnv) serviceName() string        { return "test" }
func (e testEnv) readinessCheckPath() string { return "/health" }
func (e testEnv) metricsPath() string        { return "/metrics" }
func (e testEnv) logLevel() zapcore.Level    { return e.level }
func (e testEnv) otelExporter() string {
	if e.otelExp == "" {
		return "stdout"
	}
	return e.otelExp
}
func (e testEnv) siteConfig() string              { return "site.yaml" }
func (e testEnv) requestTimeout() time.Duration   { return 30 * time.Second }
func (e testEnv) fragmentCacheTTL() time.Duration { return time.Minute }
func (e testEnv) maxSubrequests() int             { return 50 }
func (e testEnv) gatewayAccessLogGroup() string   { return "" }

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BS_PORT", "8080")
	t.Setenv("BS_SERVICE_NAME", "test")
	t.Setenv("BS_SITE_CONFIG", "site.yaml")
}

func TestNewLogger(t *testing.T) {
	for _, level := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		t.Run(level.String(), func(t *testing.T) {
			logger, err := NewLogger(testEnv{level: level})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if !logger.Core().Enabled(level) {
				t.Errorf("level %s not enabled", level)
			}
			if level > zapcore.DebugLevel && logger.Core().Enabled(level-1) {
				t.Errorf("level below %s enabled", level)
			}
		})
	}
}

func TestBaseEnvironment_LogLevel_Parsing(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		wantLevel zapcore.Level
	}{
		{"debug", "debug", zapcore.DebugLevel},
		{"info", "info", zapcore.InfoLevel},
		{"warn", "warn", zapcore.WarnLevel},
		{"error", "error", zapcore.ErrorLevel},
		{"DEBUG uppercase", "DEBUG", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("BS_LOG_LEVEL", tt.envValue)

			env, err := ParseEnv[BaseEnvironment]()()
			if err != nil {
				t.Fatalf("ParseEnv() error = %v", err)
			}

			if env.LogLevel != tt.wantLevel {
				t.Errorf("LogLevel = %v, want %v", env.LogLevel, tt.wantLevel)
			}
		})
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := newZapBsplice(zap.New(core))

	t.Run("unhandled serve error", func(t *testing.T) {
		logger.LogUnhandledServeError(errors.New("test serve error"))

		entries := logs.TakeAll()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		if entries[0].Message != "unhandled server error" {
			t.Errorf("unexpected message: %s", entries[0].Message)
		}
		if entries[0].LoggerName != "bsplice" {
			t.Errorf("unexpected logger name: %s", entries[0].LoggerName)
		}
		if entries[0].Level != zapcore.ErrorLevel {
			t.Errorf("unexpected level: %s", entries[0].Level)
		}
	})

	t.Run("nested error", func(t *testing.T) {
		logger.LogNestedError("s3://fragments/footer.html", errors.New("access denied"))

		entries := logs.TakeAll()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		if entries[0].Level != zapcore.WarnLevel {
			t.Errorf("unexpected level: %s", entries[0].Level)
		}
		if got := entries[0].ContextMap()["locator"]; got != "s3://fragments/footer.html" {
			t.Errorf("unexpected locator: %v", got)
		}
	})

	t.Run("unterminated stream", func(t *testing.T) {
		logger.LogUnterminatedStream("/docs/page.html")

		entries := logs.TakeAll()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		if got := entries[0].ContextMap()["path"]; got != "/docs/page.html" {
			t.Errorf("unexpected path: %v", got)
		}
	})
}

func TestBaseEnvironment_Defaults(t *testing.T) {
	setRequiredEnv(t)

	env, err := ParseEnv[BaseEnvironment]()()
	if err != nil {
		t.Fatalf("ParseEnv() error = %v", err)
	}

	if env.LogLevel != zapcore.InfoLevel {
		t.Errorf("LogLevel default = %v, want %v", env.LogLevel, zapcore.InfoLevel)
	}
	if env.readinessCheckPath() != "/health" || env.metricsPath() != "/metrics" {
		t.Errorf("unexpected paths: %q %q", env.readinessCheckPath(), env.metricsPath())
	}
	if env.requestTimeout() != 30*time.Second {
		t.Errorf("unexpected request timeout: %s", env.requestTimeout())
	}
	if env.fragmentCacheTTL() != time.Minute {
		t.Errorf("unexpected cache ttl: %s", env.fragmentCacheTTL())
	}
	if env.maxSubrequests() != bsplice.DefaultSubrequestLimit {
		t.Errorf("unexpected subrequest limit: %d", env.maxSubrequests())
	}
}

func TestParseEnv_MissingRequired(t *testing.T) {
	t.Setenv("BS_PORT", "8080")
	t.Setenv("BS_SERVICE_NAME", "test")

	_, err := ParseEnv[BaseEnvironment]()()
	if err == nil {
		t.Fatal("expected error for missing BS_SITE_CONFIG")
	}
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := &requestDep{logger: zap.New(core)}

	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})

	var handler bsplice.Handler = bsplice.HandlerFunc(func(ctx context.Context, _ http.ResponseWriter, _ *http.Request) error {
		Log(ctx).Info("inside")
		return errors.New("boom")
	})
	handler = bsplice.Wrap(handler, withRequestDep(d), withAccessLog())

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)
	if err := handler.ServeContent(ctx, httptest.NewRecorder(), req); err == nil {
		t.Fatal("expected the handler error to be returned")
	}

	entries := logs.TakeAll()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["trace_id"]; got != tid.String() {
		t.Errorf("unexpected trace id: %v", got)
	}
	if entries[1].Message != "served" || entries[1].ContextMap()["path"] != "/x" {
		t.Errorf("unexpected access log: %s %v", entries[1].Message, entries[1].ContextMap())
	}
	if entries[1].ContextMap()["error"] != "boom" {
		t.Errorf("expected error field, got %v", entries[1].ContextMap())
	}
}

func TestLog_WithoutMiddlewarePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()

	Log(context.Background())
}

package http

import (
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// context key carrying the encoded request body for the logging transport
type payloadContextKey struct{}

// botTokenPattern matches the bot credential embedded in Telegram file URLs.
var botTokenPattern = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)

// maxLoggedPayload keeps trainee answers embedded in prompts out of debug logs.
const maxLoggedPayload = 256

type authTransport struct {
	token     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set("Authorization", "Bearer "+t.token)
	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken sends token as a bearer credential. An empty token adds nothing.
func WithAuthToken(token string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		if token == "" {
			return rt
		}
		return &authTransport{token: token, transport: rt}
	})
}

type logTransport struct {
	transport http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", redactURL(req.URL)),
	}
	if payload, ok := ctx.Value(payloadContextKey{}).([]byte); ok && len(payload) > 0 {
		fields = append(fields, zap.Int("payload_bytes", len(payload)))
		if len(payload) > maxLoggedPayload {
			payload = payload[:maxLoggedPayload]
		}
		fields = append(fields, zap.ByteString("payload_head", payload))
	}

	ctxzap.Debug(ctx, "HTTP outbound request", fields...)

	return t.transport.RoundTrip(req)
}

func redactURL(u *url.URL) string {
	return botTokenPattern.ReplaceAllString(u.Redacted(), "bot[REDACTED]")
}

// WithRequestLogging logs method, redacted URL and the head of the payload at debug level.
// Headers are never logged: the Telegram file URL and the bearer token carry secrets.
func WithRequestLogging() HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{transport: rt}
	})
}

// Observer receives the outcome of every round trip. status is 0 on a transport error.
type Observer func(host string, status int, elapsed time.Duration, err error)

type observeTransport struct {
	observe   Observer
	transport http.RoundTripper
	now       func() time.Time
}

func (t *observeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := t.now()
	resp, err := t.transport.RoundTrip(req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.observe(req.URL.Host, status, t.now().Sub(started), err)
	return resp, err
}

// WithObserver reports each round trip to observe, typically a metrics recorder.
func WithObserver(observe Observer) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		if observe == nil {
			return rt
		}
		return &observeTransport{observe: observe, transport: rt, now: time.Now}
	})
}

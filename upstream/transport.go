package upstream

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"

	"github.com/treemana/godoh/log"
)

const (
	timeoutHandshake = 5 * time.Second
)

// newClient builds the https client shared by every request. Retries are
// disabled, a failed query is retried by the requester itself.
func newClient(proxyURL *url.URL, timeout time.Duration) (*retryablehttp.Client, error) {
	transport := cleanhttp.DefaultPooledTransport()
	transport.ForceAttemptHTTP2 = true
	transport.TLSHandshakeTimeout = timeoutHandshake
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}

	if err := setProxy(transport, proxyURL); err != nil {
		return nil, err
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = leveled{s: log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}

	return client, nil
}

func setProxy(transport *http.Transport, u *url.URL) error {
	if u == nil {
		return nil
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("proxy [%s] error=[%w]", u.Redacted(), err)
		}

		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("proxy [%s] does not support context", u.Redacted())
		}

		transport.Proxy = nil
		transport.DialContext = cd.DialContext
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme [%s]", u.Scheme)
	}
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct {
	s *zap.SugaredLogger
}

var _ retryablehttp.LeveledLogger = leveled{}

func (l leveled) Error(msg string, keysAndValues ...interface{}) { l.s.Errorw(msg, keysAndValues...) }
func (l leveled) Info(msg string, keysAndValues ...interface{})  { l.s.Debugw(msg, keysAndValues...) }
func (l leveled) Debug(msg string, keysAndValues ...interface{}) { l.s.Debugw(msg, keysAndValues...) }
func (l leveled) Warn(msg string, keysAndValues ...interface{})  { l.s.Warnw(msg, keysAndValues...) }

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/treemana/godoh/log"
)

const (
	defaultTimeout = 10 * time.Second

	// contentType is mandated by RFC 8484 Section 6
	contentType = "application/dns-message"
)

var (
	ErrStatus        = errors.New("doh unexpected status")
	ErrShortResponse = errors.New("doh response shorter than transaction id")
	ErrOversize      = errors.New("doh response exceeds dns message size")
)

// Forwarder resolves a raw query and returns the response without its
// leading transaction ID.
type Forwarder interface {
	Fetch(ctx context.Context, query []byte) ([]byte, error)
}

type Config struct {
	Remote  string        // DoH endpoint, e.g. https://cloudflare-dns.com/dns-query
	Proxy   string        // optional forward proxy, http(s):// or socks5(h)://
	Timeout time.Duration // per request, 10s when zero
}

// DoH is a Forwarder posting queries to a single RFC 8484 endpoint.
type DoH struct {
	remote  *url.URL
	timeout time.Duration
	client  *retryablehttp.Client
}

// type check
var _ Forwarder = (*DoH)(nil)

func New(config Config) (*DoH, error) {

	remote, err := url.Parse(config.Remote)
	if err != nil {
		return nil, fmt.Errorf("parse remote [%s] error=[%w]", config.Remote, err)
	}

	switch remote.Scheme {
	case "https", "http":
	default:
		return nil, fmt.Errorf("unsupported remote scheme [%s]", remote.Scheme)
	}

	if len(remote.Host) == 0 {
		return nil, fmt.Errorf("remote [%s] without host", config.Remote)
	}

	var proxyURL *url.URL
	if len(config.Proxy) > 0 {
		if proxyURL, err = url.Parse(config.Proxy); err != nil {
			return nil, fmt.Errorf("parse proxy [%s] error=[%w]", config.Proxy, err)
		}
	}

	d := &DoH{
		remote:  remote,
		timeout: config.Timeout,
	}

	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}

	if d.client, err = newClient(proxyURL, d.timeout); err != nil {
		return nil, err
	}

	if proxyURL != nil {
		log.Sugar.Infof("upstream %s via proxy %s://%s", remote.Host, proxyURL.Scheme, proxyURL.Host)
	} else {
		log.Sugar.Infof("upstream %s", remote.Host)
	}

	return d, nil
}

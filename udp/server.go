package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/treemana/godoh/cache"
	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/upstream"
)

const (
	defaultTimeout = 10 * time.Second

	// bufferSize fits any datagram, dns messages are capped at 64KiB
	bufferSize = 1 << 16
)

type Config struct {
	Address      string        // local bind address, host:port
	CacheEnabled bool          // when false every request is forwarded
	CacheTTL     time.Duration // entry lifetime when the cache is enabled
	LogQueries   bool          // log each query name with hit or miss at info level
	Timeout      time.Duration // forward and write timeout, 10s when zero
}

// Server reads queries from a single udp socket and answers them one at a
// time, the cache and the socket are owned by the serving goroutine.
type Server struct {
	address *net.UDPAddr
	conn    *net.UDPConn

	cache     *cache.Cache
	forwarder upstream.Forwarder

	ttl        time.Duration
	timeout    time.Duration
	logQueries bool

	serial atomic.Uint64
}

func New(config Config, forwarder upstream.Forwarder) (*Server, error) {

	if forwarder == nil {
		return nil, errors.New("nil forwarder")
	}

	address, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve address [%s] error=[%w]", config.Address, err)
	}

	s := Server{
		address:    address,
		cache:      cache.New(),
		forwarder:  forwarder,
		timeout:    config.Timeout,
		logQueries: config.LogQueries,
	}

	// a zero ttl makes every entry stale at the next sweep
	if config.CacheEnabled {
		s.ttl = config.CacheTTL
	}

	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	if err = s.setConn(); err != nil {
		return nil, fmt.Errorf("set conn error=[%w]", err)
	}

	return &s, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve blocks until the socket is closed, either by Close or by ctx being done.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	log.Sugar.Infof("server running on %s, cache ttl %s", s.conn.LocalAddr(), s.ttl)
	s.read(ctx)
	log.Sugar.Infof("server stopped, serial=%d", s.serial.Load())

	return nil
}

func (s *Server) Close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Sugar.Errorf("server udp connection close error=[%+v]", err)
		return err
	}
	return nil
}

func (s *Server) setConn() error {
	var err error
	if s.conn, err = net.ListenUDP("udp", s.address); err != nil {
		log.Sugar.Errorf("server udp [%s] listen error=[%+v]", s.address, err)
		return err
	}

	return nil
}

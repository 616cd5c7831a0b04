package udp

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treemana/godoh/cache"
	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/model"
	"github.com/treemana/godoh/util"
)

// ensureCached sweeps stale entries and forwards the query on a miss. On a
// nil return the cache holds an entry for dt.Query.
func (s *Server) ensureCached(ctx context.Context, dt *model.DT) error {

	if n := s.cache.Invalidate(s.ttl, true); n > 0 {
		log.Sugar.Debugf("sn=%d, %d cache entries expired, %d left", dt.SN, n, s.cache.Len())
	}

	key := cache.KeyFor(dt.Query)
	_, dt.Cached = s.cache.Get(key)
	s.logQuery(dt)
	if dt.Cached {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := s.forwarder.Fetch(ctx, dt.Query)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	s.cache.Insert(key, payload)

	return nil
}

// logQuery writes the query line, at info level only when query logging is on.
func (s *Server) logQuery(dt *model.DT) {
	state := "MISS"
	if dt.Cached {
		state = "HIT"
	}

	level := zapcore.DebugLevel
	if s.logQueries {
		level = zapcore.InfoLevel
	}

	ce := log.Logger.Check(level, dt.Name+" "+state)
	if ce == nil {
		return
	}

	ce.Write(
		log.GetSN(dt.SN),
		zap.Uint16("id", util.ID(dt.Query)),
		zap.String("name", dt.Name),
		zap.String("type", util.TypeString(dt.QType)),
		zap.Bool("cached", dt.Cached),
	)
}

package udp

import (
	"errors"
	"fmt"
	"time"

	"github.com/treemana/godoh/cache"
	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/model"
	"github.com/treemana/godoh/util"
)

var errInvariant = errors.New("cache miss right after ensured insert")

func (s *Server) reply(dt *model.DT) error {

	entry, ok := s.cache.Get(cache.KeyFor(dt.Query))
	if !ok {
		return errInvariant
	}

	dt.Reply = util.SpliceReply(dt.Query, entry.Payload)

	if dt.RemoteAddr == nil {
		log.Sugar.Debugf("sn=%d, remote addr nil, [%s]", dt.SN, dt.Name)
		return nil
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := s.conn.WriteToUDP(dt.Reply, dt.RemoteAddr); err != nil {
		return fmt.Errorf("write to %s: %w", dt.RemoteAddr, err)
	}

	log.Sugar.Debugf("sn=%d, id=%d, cache=%t, %d bytes to %s", dt.SN, util.ID(dt.Reply), dt.Cached, len(dt.Reply), dt.RemoteAddr)

	return nil
}

package udp

import (
	"context"
	"errors"
	"net"

	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/model"
	"github.com/treemana/godoh/util"
)

const malformedName = "<malformed>"

func (s *Server) read(ctx context.Context) {
	bytes := make([]byte, bufferSize)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(bytes)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Sugar.Warn("server read connection closed")
				break
			}
			log.Sugar.Error("server read error : ", err)
			continue
		}

		// the buffer is reused by the next read, the cache keeps the query bytes
		query := make([]byte, n)
		copy(query, bytes)

		s.handle(ctx, &model.DT{
			SN:         s.serial.Add(1),
			RemoteAddr: remoteAddr,
			Query:      query,
		})
	}
}

// handle runs one cycle to completion, any failure drops the reply and
// leaves the requester to retry.
func (s *Server) handle(ctx context.Context, dt *model.DT) {
	if len(dt.Query) < util.HeaderLen {
		log.Sugar.Warnf("sn=%d, %s sent %d bytes, shorter than dns header", dt.SN, dt.RemoteAddr, len(dt.Query))
		return
	}

	s.observe(dt)

	if err := s.ensureCached(ctx, dt); err != nil {
		log.Sugar.Errorf("sn=%d, id=%d, query=[%s %s] forward error=[%+v]", dt.SN, util.ID(dt.Query), dt.Name, util.TypeString(dt.QType), err)
		return
	}

	if err := s.reply(dt); err != nil {
		log.Sugar.Errorf("sn=%d, id=%d, reply error=[%+v]", dt.SN, util.ID(dt.Query), err)
	}
}

// observe fills in the question for logs, a bad name never aborts the cycle.
func (s *Server) observe(dt *model.DT) {
	var err error
	if dt.Name, dt.QType, err = util.DecodeQuestion(dt.Query); err != nil {
		log.Sugar.Warnf("sn=%d, id=%d, question decode error=[%+v]", dt.SN, util.ID(dt.Query), err)
		dt.Name = malformedName
	}
}

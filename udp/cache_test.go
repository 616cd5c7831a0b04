package udp

import (
	"testing"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/model"
)

func TestLogQuery(t *testing.T) {
	prevLogger, prevSugar := log.Logger, log.Sugar
	defer func() { log.Logger, log.Sugar = prevLogger, prevSugar }()

	tests := []struct {
		name       string
		enabled    zapcore.Level
		logQueries bool
		cached     bool
		wantLevel  zapcore.Level
		wantMsg    string
		wantNone   bool
	}{
		{
			name:       "query logging miss",
			enabled:    zapcore.InfoLevel,
			logQueries: true,
			wantLevel:  zapcore.InfoLevel,
			wantMsg:    "example.com. MISS",
		},
		{
			name:       "query logging hit",
			enabled:    zapcore.InfoLevel,
			logQueries: true,
			cached:     true,
			wantLevel:  zapcore.InfoLevel,
			wantMsg:    "example.com. HIT",
		},
		{
			name:      "debug only",
			enabled:   zapcore.DebugLevel,
			wantLevel: zapcore.DebugLevel,
			wantMsg:   "example.com. MISS",
		},
		{
			name:     "silent at info",
			enabled:  zapcore.InfoLevel,
			wantNone: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(tt.enabled)
			log.Logger = zap.New(core)
			log.Sugar = log.Logger.Sugar()

			s := &Server{logQueries: tt.logQueries}
			s.logQuery(&model.DT{
				SN:     42,
				Query:  newQuery(t, "example.com.", 0xABCD),
				Name:   "example.com.",
				QType:  dns.TypeA,
				Cached: tt.cached,
			})

			entries := logs.TakeAll()
			if tt.wantNone {
				if len(entries) != 0 {
					t.Errorf("logQuery() wrote %d entries, want none", len(entries))
				}
				return
			}
			if len(entries) != 1 {
				t.Fatalf("logQuery() wrote %d entries, want 1", len(entries))
			}

			e := entries[0]
			if e.Level != tt.wantLevel || e.Message != tt.wantMsg {
				t.Errorf("logQuery() = %s %q, want %s %q", e.Level, e.Message, tt.wantLevel, tt.wantMsg)
			}

			fields := e.ContextMap()
			if fields["sn"] != uint64(42) || fields["id"] != uint16(0xABCD) || fields["type"] != "A" || fields["cached"] != tt.cached {
				t.Errorf("logQuery() fields = %v", fields)
			}
		})
	}
}

package main

import (
	"testing"

	"github.com/treemana/godoh/log"
)

func TestLogConfig(t *testing.T) {
	tests := []struct {
		name   string
		option func(o *Option)
		want   log.Config
	}{
		{
			name:   "defaults",
			option: func(o *Option) {},
			want:   log.Config{STDOUT: true, MaxAge: 2, MaxSize: 10, MaxBackups: 100},
		},
		{
			name: "file json verbose",
			option: func(o *Option) {
				o.Log.File = "/var/log/godoh.log"
				o.Log.STDOUT = false
				o.Log.JSON = true
				o.Log.Verbose = true
			},
			want: log.Config{
				File:       "/var/log/godoh.log",
				Level:      -1,
				MaxAge:     2,
				MaxSize:    10,
				MaxBackups: 100,
				JsonFormat: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOption()
			tt.option(&o)
			if got := logConfig(&o); got != tt.want {
				t.Errorf("logConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

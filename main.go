package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/udp"
	"github.com/treemana/godoh/upstream"
)

const progName = "godoh"

var version = "undefined"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {

	option, err := parseOption(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if option.version {
		fmt.Println(version)
		return 0
	}

	// init log
	if err = initLog(option); err != nil {
		return 1
	}
	defer log.Sync()

	var forwarder *upstream.DoH
	if forwarder, err = upstream.New(upstream.Config{
		Remote:  option.Remote,
		Proxy:   option.Proxy,
		Timeout: time.Duration(option.Timeout) * time.Second,
	}); err != nil {
		log.Sugar.Errorf("upstream init error=[%+v]", err)
		return 1
	}

	var server *udp.Server
	if server, err = udp.New(udp.Config{
		Address:      option.Bind,
		CacheEnabled: option.Cache,
		CacheTTL:     time.Duration(option.CacheTTL) * time.Second,
		LogQueries:   option.LogQueries,
		Timeout:      time.Duration(option.Timeout) * time.Second,
	}, forwarder); err != nil {
		log.Sugar.Errorf("server init error=[%+v]", err)
		return 1
	}

	done := make(chan struct{})
	go func() {
		_ = server.Serve(context.Background())
		close(done)
	}()

	// godoh is running until os exit
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sc
	log.Sugar.Infof("signal %d %s", s, s)

	_ = server.Close()
	<-done

	return 0
}

func logConfig(option *Option) log.Config {
	lc := log.Config{
		File:       option.Log.File,
		STDOUT:     option.Log.STDOUT,
		JsonFormat: option.Log.JSON,
		MaxAge:     2,
		MaxSize:    10,
		MaxBackups: 100,
	}

	if option.Log.Verbose {
		lc.Level = -1
	}

	return lc
}

func initLog(option *Option) error {
	if err := log.Init(logConfig(option)); err != nil {
		fmt.Fprintln(os.Stderr, "log init error", err)
		return err
	}

	return nil
}

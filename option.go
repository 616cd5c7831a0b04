package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultBind     = "127.0.0.1:53"
	defaultCacheTTL = 12 * 3600 // seconds
	defaultTimeout  = 10        // seconds

	// maxCacheTTL keeps the lifetime well inside time.Duration
	maxCacheTTL = 366 * 24 * 3600 // seconds
)

// Option represents console arguments and the optional config file. Flags
// given on the command line win over values from the file.
type Option struct {
	Log struct {
		File    string `json:"file" toml:"file"`
		STDOUT  bool   `json:"stdout" toml:"stdout"`
		Verbose bool   `json:"verbose" toml:"verbose"`
		JSON    bool   `json:"json" toml:"json"`
	} `json:"log" toml:"log"`

	// Remote DoH endpoint, e.g. https://cloudflare-dns.com/dns-query
	Remote string `json:"remote" toml:"remote" validate:"required,url"`

	// Bind local udp address
	Bind string `json:"bind" toml:"bind" validate:"required,addr_port"`

	// Cache enables the response cache, CacheTTL is its entry lifetime in seconds
	Cache    bool   `json:"cache" toml:"cache"`
	CacheTTL uint64 `json:"cache_ttl" toml:"cache_ttl" validate:"required_if=Cache true,max=31622400"`

	// Proxy optional http(s):// or socks5(h):// forward proxy for the https client
	Proxy string `json:"proxy" toml:"proxy" validate:"omitempty,url"`

	LogQueries bool `json:"log_queries" toml:"log_queries"`

	// Timeout of a single DoH request in seconds
	Timeout uint64 `json:"timeout" toml:"timeout" validate:"min=1,max=300"`

	version bool
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("addr_port", validateAddrPort); err != nil {
		panic(err)
	}

	// report fields by their json name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateAddrPort(fl validator.FieldLevel) bool {
	_, err := netip.ParseAddrPort(fl.Field().String())
	return err == nil
}

func defaultOption() Option {
	var o Option
	o.Log.STDOUT = true
	o.Bind = defaultBind
	o.CacheTTL = defaultCacheTTL
	o.Timeout = defaultTimeout
	return o
}

func bindFlags(fs *flag.FlagSet, o *Option, config *string) {
	fs.StringVar(config, "config", *config, "optional json or toml config file, flags override its values")
	fs.StringVar(&o.Remote, "remote", o.Remote, "DoH server URL (required)")
	fs.StringVar(&o.Bind, "bind", o.Bind, "local address to listen for udp dns requests")
	fs.StringVar(&o.Bind, "addr-bind", o.Bind, "alias of -bind")
	fs.BoolVar(&o.Cache, "cache", o.Cache, "cache responses")
	fs.Uint64Var(&o.CacheTTL, "cache-ttl", o.CacheTTL, "cache entry lifetime in seconds")
	fs.StringVar(&o.Proxy, "proxy", o.Proxy, "forward proxy URL for DoH requests, http(s):// or socks5(h)://")
	fs.BoolVar(&o.LogQueries, "log-queries", o.LogQueries, "log every query name with cache hit or miss")
	fs.Uint64Var(&o.Timeout, "timeout", o.Timeout, "DoH request timeout in seconds")
	fs.StringVar(&o.Log.File, "log-file", o.Log.File, "log file, rotated, empty means no file")
	fs.BoolVar(&o.Log.STDOUT, "log-stdout", o.Log.STDOUT, "log to stdout")
	fs.BoolVar(&o.Log.Verbose, "verbose", o.Log.Verbose, "debug level logs")
	fs.BoolVar(&o.Log.JSON, "json-log", o.Log.JSON, "json log lines")
	fs.BoolVar(&o.version, "version", o.version, "show program version and exit")
}

// parseOption builds the Option from defaults, the config file named by
// -config and finally the explicitly given flags.
func parseOption(args []string, output io.Writer) (*Option, error) {
	var (
		config  string
		scratch = defaultOption()
	)

	first := flag.NewFlagSet(progName, flag.ContinueOnError)
	first.SetOutput(output)
	bindFlags(first, &scratch, &config)
	if err := first.Parse(args); err != nil {
		return nil, err
	}

	if scratch.version {
		return &scratch, nil
	}

	option := defaultOption()
	if len(config) > 0 {
		if err := loadFile(config, &option); err != nil {
			return nil, err
		}
	}

	second := flag.NewFlagSet(progName, flag.ContinueOnError)
	second.SetOutput(io.Discard)
	bindFlags(second, &option, &config)
	if err := second.Parse(args); err != nil {
		return nil, err
	}

	if err := option.check(); err != nil {
		return nil, err
	}

	return &option, nil
}

func loadFile(path string, o *Option) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err = toml.Unmarshal(raw, o); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return fmt.Errorf("parse %s at line %d, column %d: %w", path, row, col, err)
			}
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err = json.Unmarshal(raw, o); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return nil
}

func (o *Option) check() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}

	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), validationMessage(fe)))
	}

	return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when caching is enabled"
	case "url":
		return "must be a valid URL"
	case "addr_port":
		return "must be ip:port, IPv6 in square brackets"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	default:
		return fmt.Sprintf("failed on %s", e.Tag())
	}
}

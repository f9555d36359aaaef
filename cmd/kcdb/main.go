// Command kcdb creates, writes and reads Kyoto Cabinet databases.
//
//	go run ./cmd/kcdb create /tmp/casket.kch
//	go run ./cmd/kcdb set /tmp/casket.kch key value
//	go run ./cmd/kcdb get /tmp/casket.kch key
package main

import (
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
	"github.com/eigerco/kyotocabinet/pkg/db"
	"github.com/eigerco/kyotocabinet/pkg/db/kyoto"
	"github.com/eigerco/kyotocabinet/pkg/db/pebble"
	kc "github.com/eigerco/kyotocabinet/pkg/kyoto"
	"github.com/eigerco/kyotocabinet/pkg/log"
)

type config struct {
	backend string
	lib     string
	// library overrides lib when set.
	library kcffi.Library
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: kcdb [flags] <command> <path> [args]

commands:
  create PATH           create an empty database, truncating an existing one
  set PATH KEY VALUE    store VALUE under KEY, creating the database if needed
  get PATH KEY          print the value stored under KEY
  check PATH            open the database read-only and report its state

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var cfg config
	flag.StringVar(&cfg.backend, "backend", "kyoto", "storage backend: kyoto or pebble")
	flag.StringVar(&cfg.lib, "lib", "", "kyoto cabinet shared library (default $"+kcffi.LibraryEnv+" or the system library)")
	logLevel := flag.String("log-level", "info", "log level")
	logJSON := flag.Bool("log-json", false, "log as JSON instead of console lines")
	flag.Usage = usage
	flag.Parse()

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		stdlog.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	logType := log.ConsoleLogger
	if *logJSON {
		logType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: logType})

	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
	}

	if err := run(cfg, flag.Arg(0), flag.Arg(1), flag.Args()[2:]); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "not found")
			os.Exit(1)
		}
		log.Root.Error().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
		os.Exit(1)
	}
}

func run(cfg config, cmd, path string, args []string) (err error) {
	want := map[string]int{"create": 0, "set": 2, "get": 1, "check": 0}
	n, ok := want[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s) after the path, got %d", cmd, n, len(args))
	}

	store, err := openStore(cfg, cmd, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()

	switch cmd {
	case "set":
		if err := store.Put([]byte(args[0]), []byte(args[1])); err != nil {
			return fmt.Errorf("set %q: %w", args[0], err)
		}
	case "get":
		value, err := store.Get([]byte(args[0]))
		if err != nil {
			return err
		}
		os.Stdout.Write(value) //nolint:errcheck
		fmt.Println()
	case "check":
		fmt.Println("ok")
	}
	log.Root.Debug().Str("command", cmd).Str("path", path).Msg("done")
	return nil
}

func openStore(cfg config, cmd, path string) (db.KVStore, error) {
	switch cfg.backend {
	case "kyoto":
		opts := kc.NewOpenOptions()
		switch {
		case cfg.library != nil:
			opts.Library(cfg.library)
		case cfg.lib != "":
			lib, err := kcffi.Load(cfg.lib)
			if err != nil {
				return nil, err
			}
			opts.Library(lib)
		}
		switch cmd {
		case "create":
			opts.Write(true).Create(true).Truncate(true)
		case "set":
			opts.Write(true).Create(true)
		default:
			opts.Read(true)
		}
		return kyoto.Open(opts, path)
	case "pebble":
		switch cmd {
		case "create":
			if err := os.RemoveAll(path); err != nil {
				return nil, err
			}
		case "get", "check":
			if _, err := os.Stat(path); err != nil {
				return nil, err
			}
		}
		return pebble.NewKVStore(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

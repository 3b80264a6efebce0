package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/storage"
	"github.com/conorfennell/flashdeck/internal/store"
	flag "github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			slog.Error("Command failed", "error", err)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	db     *storage.DB
	store  *store.Store
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
}

func run(args []string, in io.Reader, out io.Writer) error {
	fs := config.Flags("flashdeck")
	fs.Usage = func() { usage(fs, out) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(out, "Unknown command %q\n\n", rest[0])
		fs.Usage()
		return errUsage
	}
	cmdArgs := rest[1:]
	if len(cmdArgs) < cmd.minArgs || (cmd.maxArgs >= 0 && len(cmdArgs) > cmd.maxArgs) {
		fmt.Fprintf(out, "Usage: flashdeck %s %s\n", rest[0], cmd.args)
		return errUsage
	}

	db, err := storage.Open(cfg.DB, cfg.Storage.Quota)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Debug("Database opened", "path", cfg.DB)

	var st *store.Store
	if !rawCommands[rest[0]] {
		st, err = store.New(db,
			store.WithKey(cfg.Storage.Key),
			store.WithHistoryLimit(cfg.History.Limit),
			store.WithTrimTo(cfg.History.Trim),
			store.WithLogger(logger),
		)
		if err != nil {
			return err
		}
	}

	a := &app{cfg: cfg, db: db, store: st, logger: logger, in: in, out: out}
	return cmd.run(a, cmdArgs)
}

func usage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintln(out, "Usage: flashdeck [flags] <command> [args]")
	fmt.Fprintln(out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(out, "  %-14s %-18s %s\n", name, c.args, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

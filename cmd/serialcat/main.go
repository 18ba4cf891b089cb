//go:build linux

// Package main contains serialcat, which bridges stdin and stdout to a serial port.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	serial "github.com/luhtfiimanal/go-cancelable-serial"
)

const (
	flagDevice      = "device"
	flagBaud        = "baud"
	flagDataBits    = "databits"
	flagParity      = "parity"
	flagTwoStopBits = "two-stop-bits"
	flagSend        = "send"
	flagDebug       = "debug"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:  "serialcat",
		Usage: "copy stdin to a serial port and the port to stdout until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagDevice,
				Aliases:  []string{"d"},
				Usage:    "serial device path",
				EnvVars:  []string{"SERIALCAT_DEVICE"},
				Required: true,
			},
			&cli.IntFlag{
				Name:    flagBaud,
				Aliases: []string{"b"},
				Usage:   "baud rate",
				EnvVars: []string{"SERIALCAT_BAUD"},
				Value:   9600,
			},
			&cli.IntFlag{
				Name:    flagDataBits,
				Usage:   "character size (5-8)",
				EnvVars: []string{"SERIALCAT_DATABITS"},
				Value:   8,
			},
			&cli.StringFlag{
				Name:    flagParity,
				Usage:   "parity (none, odd, even)",
				EnvVars: []string{"SERIALCAT_PARITY"},
				Value:   "none",
			},
			&cli.BoolFlag{
				Name:    flagTwoStopBits,
				Usage:   "use two stop bits",
				EnvVars: []string{"SERIALCAT_TWO_STOP_BITS"},
			},
			&cli.StringFlag{
				Name:  flagSend,
				Usage: "text written to the port before copying stdin",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Usage:   "log port diagnostics to stderr",
				EnvVars: []string{"SERIALCAT_DEBUG"},
			},
		},
		Action: func(c *cli.Context) error {
			logger, err := newLogger(c.Bool(flagDebug))
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			parity, err := serial.ParseParity(c.String(flagParity))
			if err != nil {
				return err
			}
			cfg := serial.Config{
				Device:      c.String(flagDevice),
				BaudRate:    c.Int(flagBaud),
				CharSize:    c.Int(flagDataBits),
				TwoStopBits: c.Bool(flagTwoStopBits),
				Parity:      parity,
				Logger:      logger,
			}
			return run(c.Context, cfg, c.String(flagSend), stdin, stdout, logger)
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run bridges the port until ctx is done or the port fails. Writes, the
// cancel and the final close share one mutex since the port only allows
// Read and CancelRead to overlap.
func run(ctx context.Context, cfg serial.Config, send string, stdin io.Reader, stdout io.Writer, logger *zap.Logger) (err error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return errors.Wrapf(err, "opening %s", cfg.Device)
	}
	logger.Info("port open",
		zap.String("device", cfg.Device),
		zap.Int("baud", cfg.BaudRate),
		zap.Stringer("parity", cfg.Parity))

	var mu sync.Mutex
	write := func(b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		return port.WriteAll(b)
	}

	readDone := make(chan error, 1)
	go func() {
		readDone <- pump(port, stdout)
	}()

	if send != "" {
		if err := write([]byte(send)); err != nil {
			logger.Error("sending initial text", zap.Error(err))
		}
	}
	if stdin != nil {
		go copyInput(stdin, write, logger)
	}

	select {
	case <-ctx.Done():
		mu.Lock()
		cancelErr := port.CancelRead()
		mu.Unlock()
		if cancelErr != nil {
			// The reader is still blocked, so the port cannot be closed safely.
			return errors.Wrap(cancelErr, "cancelling read")
		}
		err = <-readDone
	case err = <-readDone:
	}

	mu.Lock()
	defer mu.Unlock()
	stats := port.Stats()
	logger.Info("port closing",
		zap.Uint64("bytes_read", stats.BytesRead),
		zap.Uint64("bytes_written", stats.BytesWritten))
	return multierr.Combine(err, port.Close())
}

// pump copies the port to w until the read is cancelled or fails.
func pump(port *serial.Port, w io.Writer) error {
	buf := make([]byte, 4096)
	for {
		n, err := port.Read(buf)
		if errors.Is(err, serial.ErrInterrupted) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading port")
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return errors.Wrap(err, "writing output")
		}
	}
}

func copyInput(r io.Reader, write func([]byte) error, logger *zap.Logger) {
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := write(buf[:n]); werr != nil {
				if !errors.Is(werr, serial.ErrClosed) {
					logger.Error("writing to port", zap.Error(werr))
				}
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Error("reading input", zap.Error(err))
			}
			return
		}
	}
}

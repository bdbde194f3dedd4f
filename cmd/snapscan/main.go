// Command snapscan reads a Snap Card QR code from image files and writes the
// contact as contact.vcf. Each path is treated as a camera; a directory is
// played frame by frame in name order.
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

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/config"
	"github.com/Tobless-scripts/Snap-Card/internal/logger"
	"github.com/Tobless-scripts/Snap-Card/internal/qr"
	"github.com/Tobless-scripts/Snap-Card/internal/scanner"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
	"github.com/Tobless-scripts/Snap-Card/internal/share"
)

// Exit codes.
const (
	exitOK = iota
	exitError
	exitNoCode
	exitUnsupported
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	outDir := flag.String("out", ".", "directory to write contact.vcf into")
	device := flag.String("device", "", "path to scan (see -list)")
	list := flag.Bool("list", false, "list devices and exit")
	userID := flag.String("user", "", "save the contact for this user in DATA_DIR")
	qrBox := flag.Int("qrbox", cfg.ScanQRBox, "side of the centred scan square in pixels, 0 for the whole frame")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: snapscan [flags] image-or-dir...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return exitError
	}

	lg := logger.New()
	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := lg.Init(level); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return exitError
	}
	log := lg.Log
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	sc := scanner.New(scanner.NewFileSource(flag.Args()...), qr.NewReader(), scanner.Config{
		FPS:         cfg.ScanFPS,
		QRBox:       *qrBox,
		FacingMode:  scanner.DefaultConfig().FacingMode,
		InitTimeout: scanner.DefaultConfig().InitTimeout,
	}, logger.Named(log, "scanner"))

	devices, err := sc.Initialize(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapscan: %v\n", err)
		return exitError
	}
	if *list {
		for _, d := range devices {
			fmt.Printf("%s\t%s\n", d.ID, d.Label)
		}
		return exitOK
	}
	if *device != "" {
		if err := sc.Select(*device); err != nil {
			fmt.Fprintf(os.Stderr, "snapscan: %s: %v\n", *device, err)
			return exitError
		}
	}

	h, err := sc.Start(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapscan: %v\n", err)
		return exitError
	}
	text, err := h.Wait(ctx)
	switch {
	case err == nil:
	case errors.Is(err, scanner.ErrEndOfStream):
		fmt.Fprintln(os.Stderr, "snapscan: no QR code found")
		return exitNoCode
	default:
		sc.Stop()
		fmt.Fprintf(os.Stderr, "snapscan: %v\n", err)
		return exitError
	}

	var store services.ContactStore = services.NewMemoryContactStore()
	if *userID != "" {
		fs, err := services.NewFileContactStore(cfg.DataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapscan: %v\n", err)
			return exitError
		}
		store = fs
	}
	ingest := services.NewIngestionService(store, logger.Named(log, "ingest"),
		services.WithDedupeOnWrite(cfg.DedupeOnWrite))
	exchange := services.NewExchangeService(ingest, log)

	dl := share.FileDownloader{Dir: *outDir}
	res, err := exchange.HandleScan(ctx, text, *userID, share.NewExporter(nil, dl, log), "")
	ingest.Wait()
	if errors.Is(err, apperrors.ErrUnsupportedFormat) {
		fmt.Fprintf(os.Stderr, "snapscan: not a contact card: %q\n", text)
		return exitUnsupported
	}
	if err != nil {
		log.Error("export", zap.Error(err))
		fmt.Fprintf(os.Stderr, "snapscan: %v\n", err)
		return exitError
	}

	fmt.Println(dl.Path(share.VCardFile(text)))
	if res.Saved {
		fmt.Fprintf(os.Stderr, "contact stored for %s in %s\n", *userID, cfg.DataDir)
	}
	return exitOK
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config and tier economics.
// 2) Build app wiring (ports + adapters + use cases), replaying the ledger.
// 3) Serve HTTP and relay issued tokens into the ledger until signalled.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("civic ballot api starting")
	app, err := bootstrap.BuildAPI(ctx)
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("civic ballot api stopped with error: %v", err)
	}
}

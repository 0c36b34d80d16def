package main

import (
	"embed"
	"fmt"
	"log"

	"whisper-transcriber/internal/bootstrap"
)

//go:embed all:frontend
var appAssets embed.FS

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		return fmt.Errorf("bootstrap app: %w", err)
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}

// Command app runs the desktop app against the on-disk frontend/
// directory instead of the embedded bundle, so UI edits show up on
// the next reload during development.
package main

import (
	"log"

	"whisper-transcriber/internal/bootstrap"
)

func main() {
	log.SetFlags(0)

	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("dev app: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("dev app: %v", err)
	}
}

// Package main implements the entry point for the Toast export API server,
// which runs order exports as background tasks and delivers the resulting
// summaries to webhooks.
package main

import (
	"context"
	"log"
)

// main initializes configuration, wires the application components, and runs
// the HTTP server until a shutdown signal.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(context.Background(), router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then hold the configured chord to see press/release events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--keys ctrl,shift,space]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/govoicekey/internal/hotkey"
)

func main() {
	keysFlag := flag.String("keys", "ctrl,shift,space", "comma-separated chord keys")
	flag.Parse()

	keys := strings.Split(*keysFlag, ",")
	fmt.Printf("Listening for %s...\n", strings.Join(keys, "+"))
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(keys)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	go func() {
		for ev := range listener.Events() {
			switch ev.Kind {
			case hotkey.Pressed:
				fmt.Println(">>> PRESSED  (would start recording)")
			case hotkey.Released:
				fmt.Println("<<< RELEASED (would stop recording)")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}

// Command nvnmos-example is a thin embedding driver: it loads a
// pkg/config.Settings document, wires it into the nvnmos facade, seeds
// the senders and receivers that document lists (or, with no config
// file, one built-in video sender), and blocks until it receives a
// termination signal.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NVIDIA/nvnmos"
)

const (
	appName    = "nvnmos-example"
	appVersion = "1.0.0"
)

var (
	configPath = flag.String("config", "configs/node.yaml", "Path to node configuration file")
	version    = flag.Bool("version", false, "Print version and exit")
)

// exampleVideoSenderSDP is the driver's built-in sender, matching the
// video sink used across this repository's tests.
const exampleVideoSenderSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 192.0.2.10\r\n" +
	"s=sink-0\r\n" +
	"t=0 0\r\n" +
	"a=x-nvnmos-id:sink-0\r\n" +
	"m=video 5020 RTP/AVP 96\r\n" +
	"c=IN IP4 233.252.0.0/32\r\n" +
	"a=x-nvnmos-iface-ip:192.0.2.10\r\n" +
	"a=ts-refclk:ptp=IEEE1588-2008:AC-DE-48-23-45-67-01-9F:42\r\n" +
	"a=mediaclk:direct=0\r\n" +
	"a=fmtp:96 sampling=YCbCr-4:2:2;width=1920;height=1080\r\n"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg := loadOrDefault(*configPath)

	n, ok := nvnmos.Create(cfg)
	if !ok {
		fmt.Fprintln(os.Stderr, "failed to start node")
		os.Exit(1)
	}
	defer nvnmos.Destroy(n)

	fmt.Printf("%s v%s listening on %s\n", appName, appVersion, cfg.ListenAddr)
	waitForShutdown()
}

// loadOrDefault builds a Config either from path (if it exists, via
// pkg/config) or from a small built-in default suitable for a demo
// run against localhost.
func loadOrDefault(path string) nvnmos.Config {
	if _, err := os.Stat(path); err != nil {
		return nvnmos.Config{
			Seed:           "nmos-api.local:8080",
			Hostname:       "nmos-api.local",
			HTTPPort:       8080,
			Label:          "nvnmos-example",
			ListenAddr:     ":8080",
			HostInterfaces: []nvnmos.HostInterface{{Name: "eth0", Address: "192.0.2.10"}},
			InitialSenders: []string{exampleVideoSenderSDP},
			LogLevel:       "info",
			OnLog: func(categories string, level int, text string) {
				fmt.Fprintf(os.Stderr, "[%s] (%d) %s\n", categories, level, text)
			},
		}
	}

	settings, err := loadSettings(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
		os.Exit(1)
	}
	return settings
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("received shutdown signal: %s\n", sig)
}

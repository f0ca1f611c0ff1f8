// Command kvtap-tui is a live observability client: it subscribes to one
// topic on a running kvtapd and renders published values as they arrive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/kvtap/inspector"
	"github.com/mickamy/kvtap/tlsconf"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("kvtap-tui", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "kvtap-tui — watch a kvtap topic in real time\n\nUsage:\n  kvtap-tui [flags] <topic>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	addr := fs.String("addr", "127.0.0.1:9527", "kvtapd address")
	domain := fs.String("domain", "localhost", "server hostname to validate")
	serverCA := fs.String("server-ca", "", "PEM server CA override; uses the platform trust store if empty")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("kvtap-tui %s\n", version)
		return
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(*addr, *domain, *serverCA, fs.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(addr, domain, serverCAPath, topic string) error {
	var serverCA []byte
	if serverCAPath != "" {
		b, err := os.ReadFile(serverCAPath)
		if err != nil {
			return fmt.Errorf("read server CA: %w", err)
		}
		serverCA = b
	}

	connector, err := tlsconf.NewClientConnector(domain, nil, nil, serverCA)
	if err != nil {
		return fmt.Errorf("build connector: %w", err)
	}

	p := tea.NewProgram(inspector.New(addr, connector, topic), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Command kvtap-client is a minimal demonstration of client.Client:
// it dials a kvtapd instance, issues one Hset and one Hget, and prints
// the results.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mickamy/kvtap/client"
	"github.com/mickamy/kvtap/tlsconf"
	"github.com/mickamy/kvtap/wire"
)

func main() {
	fs := flag.NewFlagSet("kvtap-client", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "kvtap-client — demo client for kvtapd\n\nUsage:\n  kvtap-client [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	addr := fs.String("addr", "127.0.0.1:9527", "kvtapd address")
	domain := fs.String("domain", "localhost", "server hostname to validate")
	serverCA := fs.String("server-ca", "", "PEM server CA override; uses the platform trust store if empty")
	table := fs.String("table", "t1", "table to operate on")
	key := fs.String("key", "k1", "key to set and get")
	value := fs.String("value", "v1", "string value to set")

	_ = fs.Parse(os.Args[1:])

	if err := run(*addr, *domain, *serverCA, *table, *key, *value); err != nil {
		log.Fatal(err)
	}
}

func run(addr, domain, serverCAPath, table, key, value string) error {
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

	c, err := client.Dial(addr, connector)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = c.Close() }()

	setResp, err := c.Execute(wire.HsetRequest(table, wire.KvPair{Key: key, Value: wire.StringValue(value)}))
	if err != nil {
		return fmt.Errorf("hset: %w", err)
	}
	log.Printf("Hset(%s,%s,%s) -> status=%d", table, key, value, setResp.Status)

	getResp, err := c.Execute(wire.HgetRequest(table, key))
	if err != nil {
		return fmt.Errorf("hget: %w", err)
	}
	if getResp.Status != 200 {
		log.Printf("Hget(%s,%s) -> status=%d message=%q", table, key, getResp.Status, getResp.Message)
		return nil
	}
	got, err := getResp.Values[0].AsString()
	if err != nil {
		return fmt.Errorf("hget value: %w", err)
	}
	log.Printf("Hget(%s,%s) -> %q", table, key, got)
	return nil
}

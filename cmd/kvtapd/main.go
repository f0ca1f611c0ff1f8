// Command kvtapd is the kvtap server daemon: a flag-parsed listener that
// dispatches the length-prefixed TLS protocol to a storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mickamy/kvtap/server"
	"github.com/mickamy/kvtap/service"
	"github.com/mickamy/kvtap/storage"
	"github.com/mickamy/kvtap/tlsconf"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("kvtapd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "kvtapd — kvtap server daemon\n\nUsage:\n  kvtapd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	listen := fs.String("listen", ":9527", "TLS listen address")
	backend := fs.String("backend", "memory", "storage backend: memory or bolt")
	boltPath := fs.String("bolt-path", "kvtap.db", "path to the embedded bolt database (backend=bolt)")
	serverCert := fs.String("server-cert", "", "PEM server certificate (required)")
	serverKey := fs.String("server-key", "", "PEM server private key (required)")
	clientCA := fs.String("client-ca", "", "PEM client CA bundle; enables mutual TLS when set")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("kvtapd %s\n", version)
		return
	}

	if *serverCert == "" || *serverKey == "" {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(*listen, *backend, *boltPath, *serverCert, *serverKey, *clientCA); err != nil {
		log.Fatal(err)
	}
}

func run(listen, backend, boltPath, serverCertPath, serverKeyPath, clientCAPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openBackend(backend, boltPath)
	if err != nil {
		return fmt.Errorf("open backend %s: %w", backend, err)
	}
	defer func() { _ = closeStore() }()
	log.Printf("storage backend: %s", backend)

	acceptor, err := loadAcceptor(serverCertPath, serverKeyPath, clientCAPath)
	if err != nil {
		return fmt.Errorf("load TLS material: %w", err)
	}
	if clientCAPath != "" {
		log.Printf("mutual TLS enabled (client CA: %s)", clientCAPath)
	}

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}

	svc := service.New(service.NewServiceInner(store))

	srv := server.New(lis, acceptor, svc)

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Printf("kvtapd listening on %s", listen)
	if err := srv.Serve(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func openBackend(backend, boltPath string) (storage.Storage, func() error, error) {
	switch backend {
	case "memory":
		return storage.NewMemTable(), func() error { return nil }, nil
	case "bolt":
		bs, err := storage.OpenBoltStore(boltPath)
		if err != nil {
			return nil, nil, err
		}
		return bs, bs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func loadAcceptor(certPath, keyPath, clientCAPath string) (*tlsconf.ServerAcceptor, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read server cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read server key: %w", err)
	}

	var clientCAPEM []byte
	if clientCAPath != "" {
		clientCAPEM, err = os.ReadFile(clientCAPath)
		if err != nil {
			return nil, fmt.Errorf("read client CA: %w", err)
		}
	}

	return tlsconf.NewServerAcceptor(certPEM, keyPEM, clientCAPEM)
}

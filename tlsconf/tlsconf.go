// Package tlsconf builds the server and client TLS configurations kvtap
// uses on every connection: ALPN pinned to "db_server", optional mutual
// TLS, and a certificate loader that accepts both PKCS8 and PKCS1
// ("RSA PRIVATE KEY") private keys.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"

	"github.com/mickamy/kvtap/kverrors"
)

// ALPNProtocol is the single application protocol kvtap negotiates.
const ALPNProtocol = "db_server"

// ServerAcceptor holds a *tls.Config ready to wrap accepted connections.
type ServerAcceptor struct {
	config *tls.Config
}

// NewServerAcceptor builds a ServerAcceptor from a PEM certificate chain
// and private key. When clientCA is non-empty, the server requires and
// verifies a client certificate signed by it (mutual TLS); otherwise no
// client certificate is requested.
func NewServerAcceptor(certPEM, keyPEM []byte, clientCA []byte) (*ServerAcceptor, error) {
	cert, err := loadKeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
		MinVersion:   tls.VersionTLS12,
	}

	if len(clientCA) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(clientCA) {
			return nil, &kverrors.CertificateParseError{Detail: "client CA"}
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return &ServerAcceptor{config: cfg}, nil
}

// Wrap upgrades conn to a TLS server connection.
func (a *ServerAcceptor) Wrap(conn net.Conn) *tls.Conn {
	return tls.Server(conn, a.config)
}

// ClientConnector holds a *tls.Config ready to dial with, plus the server
// name it verifies against.
type ClientConnector struct {
	config *tls.Config
	domain string
}

// NewClientConnector builds a ClientConnector for domain. When identity is
// non-nil the client presents it as its own certificate (for mutual TLS);
// when serverCA is non-empty it is added to the trusted root pool in
// addition to the system roots, for servers whose certificate is signed by
// a private CA.
func NewClientConnector(domain string, identityCertPEM, identityKeyPEM, serverCA []byte) (*ClientConnector, error) {
	cfg := &tls.Config{
		ServerName: domain,
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{ALPNProtocol},
	}

	if len(identityCertPEM) > 0 {
		cert, err := loadKeyPair(identityCertPEM, identityKeyPEM)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if len(serverCA) > 0 {
		if !pool.AppendCertsFromPEM(serverCA) {
			return nil, &kverrors.CertificateParseError{Detail: "server CA"}
		}
	}
	cfg.RootCAs = pool

	return &ClientConnector{config: cfg, domain: domain}, nil
}

// Config returns the underlying *tls.Config, for callers that need to pass
// it directly to tls.Dial or tls.Client.
func (c *ClientConnector) Config() *tls.Config {
	return c.config
}

// Domain returns the server name this connector verifies against.
func (c *ClientConnector) Domain() string {
	return c.domain
}

// Dial connects to addr and completes a TLS handshake, verifying the peer
// against c's domain and root pool.
func (c *ClientConnector) Dial(addr string) (*tls.Conn, error) {
	return tls.Dial("tcp", addr, c.config)
}

// loadKeyPair parses a PEM certificate and private key with
// tls.X509KeyPair, which accepts PKCS1 ("RSA PRIVATE KEY"), PKCS8, and EC
// private keys.
func loadKeyPair(certPEM, keyPEM []byte) (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err == nil {
		return cert, nil
	}

	// tls.X509KeyPair has already tried every key encoding it supports, so
	// there is no second parse to attempt. Its error (which may come from
	// the certificate, the key, or a mismatch between them) is wrapped, and
	// the detail names what the key PEM contained.
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return tls.Certificate{}, &kverrors.CertificateParseError{Detail: "private key: no PEM block found", Err: err}
	}
	return tls.Certificate{}, &kverrors.CertificateParseError{Detail: fmt.Sprintf("private key: unsupported PEM type %q", block.Type), Err: err}
}

package tlsconf_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/mickamy/kvtap/tlsconf"
)

type testCert struct {
	certPEM []byte
	keyPEM  []byte
}

func generateCert(t *testing.T, commonName string, dnsNames []string) testCert {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     dnsNames,
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return testCert{certPEM: certPEM, keyPEM: keyPEM}
}

func TestHandshakeWithoutClientAuth(t *testing.T) {
	t.Parallel()

	server := generateCert(t, "localhost", []string{"localhost"})

	acceptor, err := tlsconf.NewServerAcceptor(server.certPEM, server.keyPEM, nil)
	if err != nil {
		t.Fatalf("NewServerAcceptor: %v", err)
	}

	connector, err := tlsconf.NewClientConnector("localhost", nil, nil, server.certPEM)
	if err != nil {
		t.Fatalf("NewClientConnector: %v", err)
	}

	clientRaw, serverRaw := net.Pipe()

	serverDone := make(chan error, 1)
	go func() {
		conn := acceptor.Wrap(serverRaw)
		serverDone <- conn.Handshake()
	}()

	clientConn := tlsConnClient(connector, clientRaw)
	if err := clientConn.Handshake(); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server handshake: %v", err)
	}

	if clientConn.ConnectionState().NegotiatedProtocol != tlsconf.ALPNProtocol {
		t.Errorf("negotiated protocol = %q, want %q", clientConn.ConnectionState().NegotiatedProtocol, tlsconf.ALPNProtocol)
	}
}

func TestHandshakeRejectsWrongDomain(t *testing.T) {
	t.Parallel()

	server := generateCert(t, "kvtap.internal", []string{"kvtap.internal"})

	acceptor, err := tlsconf.NewServerAcceptor(server.certPEM, server.keyPEM, nil)
	if err != nil {
		t.Fatalf("NewServerAcceptor: %v", err)
	}

	connector, err := tlsconf.NewClientConnector("wrong.example", nil, nil, server.certPEM)
	if err != nil {
		t.Fatalf("NewClientConnector: %v", err)
	}

	clientRaw, serverRaw := net.Pipe()
	go func() {
		conn := acceptor.Wrap(serverRaw)
		_ = conn.Handshake()
	}()

	clientConn := tlsConnClient(connector, clientRaw)
	if err := clientConn.Handshake(); err == nil {
		t.Fatal("expected handshake to fail for a mismatched domain")
	}
}

func TestMutualTLS(t *testing.T) {
	t.Parallel()

	server := generateCert(t, "localhost", []string{"localhost"})
	client := generateCert(t, "kvtap-client", nil)

	acceptor, err := tlsconf.NewServerAcceptor(server.certPEM, server.keyPEM, client.certPEM)
	if err != nil {
		t.Fatalf("NewServerAcceptor: %v", err)
	}

	connector, err := tlsconf.NewClientConnector("localhost", client.certPEM, client.keyPEM, server.certPEM)
	if err != nil {
		t.Fatalf("NewClientConnector: %v", err)
	}

	clientRaw, serverRaw := net.Pipe()

	serverDone := make(chan error, 1)
	go func() {
		conn := acceptor.Wrap(serverRaw)
		serverDone <- conn.Handshake()
	}()

	clientConn := tlsConnClient(connector, clientRaw)
	if err := clientConn.Handshake(); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server handshake: %v", err)
	}
}

func TestLoadKeyPairRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := tlsconf.NewServerAcceptor([]byte("not a cert"), []byte("not a key"), nil)
	if err == nil {
		t.Fatal("expected a CertificateParseError for garbage PEM input")
	}
}

func tlsConnClient(c *tlsconf.ClientConnector, raw net.Conn) *tls.Conn {
	return tls.Client(raw, c.Config())
}

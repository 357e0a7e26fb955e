// Copyright 2019 The Morning Consult, LLC or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//         https://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.


package test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ErrorsEqual fails the test unless err's message is expected. An
// empty expected string means no error.
func ErrorsEqual(t *testing.T, err error, expected string) {
	t.Helper()

	switch {
	case err == nil && expected == "":
	case err == nil:
		t.Fatalf("expected an error:\n%q\n\nGot: nil", expected)
	case expected == "":
		t.Fatalf("expected no error but got:\n%v", err)
	case err.Error() != expected:
		t.Fatalf("Expected error:\n%q\n\nGot:\n%q", expected, err.Error())
	}
}

// ErrorContains fails the test unless err is non-nil and its message
// contains substr.
func ErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected an error containing %q", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("Expected error containing:\n%q\n\nGot:\n%q", substr, err.Error())
	}
}

// MakeFile writes data to name inside dir and returns its path.
func MakeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := ioutil.WriteFile(p, data, 0600); err != nil {
		t.Fatalf("error writing data to file %q: %v", p, err)
	}
	return p
}

// MakeClientCert writes a self-signed client certificate and its key
// to dir as PEM files and returns their paths.
func MakeClientCert(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("error generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "vault-env-binding-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("error creating certificate: %v", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("error marshaling key: %v", err)
	}

	certFile = MakeFile(t, dir, "client.pem", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyFile = MakeFile(t, dir, "client-key.pem", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certFile, keyFile
}

// RequireClientCert returns a server TLS configuration which demands,
// but does not verify, a client certificate.
func RequireClientCert() *tls.Config {
	return &tls.Config{
		ClientAuth: tls.RequireAnyClientCert,
	}
}

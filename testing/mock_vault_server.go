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
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/sdk/helper/jsonutil"
)

// LoginCheck validates the JSON payload of a login request. A non-nil
// error makes the mock server reject the login with a 400.
type LoginCheck func(payload map[string]interface{}) error

// ExpectPayload returns a LoginCheck accepting exactly expected.
func ExpectPayload(expected map[string]interface{}) LoginCheck {
	return func(payload map[string]interface{}) error {
		if diff := cmp.Diff(expected, payload); diff != "" {
			return fmt.Errorf("unexpected login payload:\n%s", diff)
		}
		return nil
	}
}

// MockVaultOptions configures a MockVaultServer.
type MockVaultOptions struct {
	// Logins maps login paths, such as "auth/approle/login", to the
	// check applied to their payload.
	Logins map[string]LoginCheck

	// Token is returned by every successful login. If empty, a random
	// UUID is minted per login.
	Token string

	// OmitAuth makes successful logins return a response without an
	// auth block.
	OmitAuth bool

	// TLS, if set, makes the server serve HTTPS with this
	// configuration.
	TLS *tls.Config
}

// Request is a request received by a MockVaultServer.
type Request struct {
	Method       string
	Path         string
	Namespace    string
	HasNamespace bool
	Token        string
	ClientCerts  int
	Payload      map[string]interface{}
}

// MockVaultServer mimics the login endpoints of Vault's auth methods.
type MockVaultServer struct {
	*httptest.Server

	t    *testing.T
	opts MockVaultOptions

	mu       sync.Mutex
	requests []Request
}

// NewMockVaultServer starts a mock Vault server. It is closed when
// the test finishes.
func NewMockVaultServer(t *testing.T, opts MockVaultOptions) *MockVaultServer {
	m := &MockVaultServer{t: t, opts: opts}

	server := httptest.NewUnstartedServer(http.HandlerFunc(m.handle))
	if opts.TLS != nil {
		server.TLS = opts.TLS
		server.StartTLS()
	} else {
		server.Start()
	}
	m.Server = server

	t.Cleanup(server.Close)
	return m
}

// Requests returns every request received so far.
func (m *MockVaultServer) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockVaultServer) handle(resp http.ResponseWriter, req *http.Request) {
	record := Request{
		Method: req.Method,
		Path:   strings.TrimPrefix(req.URL.Path, "/v1/"),
		Token:  req.Header.Get("X-Vault-Token"),
	}
	if v, ok := req.Header["X-Vault-Namespace"]; ok {
		record.HasNamespace = true
		if len(v) > 0 {
			record.Namespace = v[0]
		}
	}
	if req.TLS != nil {
		record.ClientCerts = len(req.TLS.PeerCertificates)
	}

	if req.Body != nil && req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&record.Payload); err != nil {
			m.t.Logf("[ %s %s ] error decoding request body: %v", req.Method, req.URL.Path, err)
			m.record(record)
			writeErrors(resp, http.StatusBadRequest, "failed to parse JSON input")
			return
		}
	}
	m.record(record)

	switch req.Method {
	case http.MethodPut, http.MethodPost:
	default:
		writeErrors(resp, http.StatusMethodNotAllowed, "unsupported operation")
		return
	}

	check, ok := m.opts.Logins[record.Path]
	if !ok {
		writeErrors(resp, http.StatusNotFound, "no handler for route "+record.Path)
		return
	}

	if err := check(record.Payload); err != nil {
		m.t.Logf("[ %s %s ] rejected login: %v", req.Method, req.URL.Path, err)
		writeErrors(resp, http.StatusBadRequest, "invalid credentials")
		return
	}

	secret := &api.Secret{RequestID: "mock"}
	if !m.opts.OmitAuth {
		token := m.opts.Token
		if token == "" {
			var err error
			if token, err = uuid.GenerateUUID(); err != nil {
				m.t.Logf("[ %s %s ] failed to create a random UUID: %v", req.Method, req.URL.Path, err)
				writeErrors(resp, http.StatusInternalServerError, "internal error")
				return
			}
		}
		secret.Auth = &api.SecretAuth{
			ClientToken:   token,
			LeaseDuration: 3600,
			Renewable:     true,
		}
	}

	payload, err := jsonutil.EncodeJSON(secret)
	if err != nil {
		m.t.Logf("[ %s %s ] error marshaling response payload: %v", req.Method, req.URL.Path, err)
		writeErrors(resp, http.StatusInternalServerError, "internal error")
		return
	}

	resp.Header().Set("Content-Type", "application/json")
	if _, err = resp.Write(payload); err != nil {
		m.t.Logf("[ %s %s ] error writing response: %v", req.Method, req.URL.Path, err)
	}
}

func (m *MockVaultServer) record(r Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
}

func writeErrors(resp http.ResponseWriter, code int, errs ...string) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(code)
	_ = json.NewEncoder(resp).Encode(map[string][]string{"errors": errs})
}

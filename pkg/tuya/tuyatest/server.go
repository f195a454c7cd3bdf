// Package tuyatest runs an in-process vendor API that checks request
// signatures and serves configurable devices.
package tuyatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

const (
	CodeSignInvalid  = 1004
	CodeTokenInvalid = tuya.CodeTokenInvalid
	CodeDeviceFailed = 2008
)

type Server struct {
	*httptest.Server

	AccessID  string
	Secret    string
	AccountID string

	signer *tuya.Signer

	mu           sync.Mutex
	token        string
	tokenExpire  int64
	tokenFailure string
	listFailure  string
	devices      []tuya.DeviceInfo
	statuses     map[string]json.RawMessage
	failing      map[string]string
	statusDelay  time.Duration

	tokenCalls  atomic.Int64
	listCalls   atomic.Int64
	statusCalls atomic.Int64
}

func NewServer(accessID, secret, accountID string) *Server {
	s := &Server{
		AccessID:    accessID,
		Secret:      secret,
		AccountID:   accountID,
		signer:      tuya.NewSigner(accessID, secret),
		tokenExpire: 7200,
		statuses:    map[string]json.RawMessage{},
		failing:     map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1.0/token", s.handleToken)
	mux.HandleFunc("GET /v1.0/users/{uid}/devices", s.handleListDevices)
	mux.HandleFunc("GET /v1.0/devices/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /v1.0/devices/{id}", s.handleInfo)

	s.Server = httptest.NewServer(mux)
	return s
}

// NewClient returns a vendor client pointed at the fake with matching
// credentials.
func (s *Server) NewClient(opts tuya.ClientOpts) *tuya.Client {
	opts.Endpoint = s.URL
	opts.AccessID = s.AccessID
	opts.AccessSecret = s.Secret
	if opts.AccountID == "" {
		opts.AccountID = s.AccountID
	}
	return tuya.NewClient(opts)
}

func (s *Server) AddDevice(info tuya.DeviceInfo, status []tuya.StatusItem) {
	raw, _ := json.Marshal(status)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, info)
	s.statuses[info.ID] = raw
}

// SetRawStatus serves result verbatim for the device, e.g. `{}` or `null`.
func (s *Server) SetRawStatus(deviceID string, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[deviceID] = json.RawMessage(result)
}

func (s *Server) FailDevice(deviceID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[deviceID] = msg
}

func (s *Server) FailList(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listFailure = msg
}

func (s *Server) FailToken(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenFailure = msg
}

func (s *Server) SetTokenExpire(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenExpire = seconds
}

// RevokeToken makes the current token invalid, as if it expired on the
// vendor side.
func (s *Server) RevokeToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *Server) SetStatusDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusDelay = d
}

func (s *Server) TokenCalls() int64  { return s.tokenCalls.Load() }
func (s *Server) ListCalls() int64   { return s.listCalls.Load() }
func (s *Server) StatusCalls() int64 { return s.statusCalls.Load() }

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)

	if !s.verify(w, r, "") {
		return
	}

	s.mu.Lock()
	failure := s.tokenFailure
	expire := s.tokenExpire
	if failure == "" {
		s.token = uuid.NewString()
	}
	token := s.token
	s.mu.Unlock()

	if failure != "" {
		writeFailure(w, 1001, failure)
		return
	}
	writeResult(w, map[string]any{
		"access_token":  token,
		"expire_time":   expire,
		"refresh_token": uuid.NewString(),
		"uid":           s.AccountID,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	s.listCalls.Add(1)

	if !s.verifyWithToken(w, r) {
		return
	}

	s.mu.Lock()
	failure := s.listFailure
	devices := append([]tuya.DeviceInfo{}, s.devices...)
	s.mu.Unlock()

	if failure != "" {
		writeFailure(w, 1106, failure)
		return
	}
	if r.PathValue("uid") != s.AccountID {
		writeFailure(w, 1106, "permission deny")
		return
	}
	writeResult(w, devices)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.statusCalls.Add(1)

	s.mu.Lock()
	delay := s.statusDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if !s.verifyWithToken(w, r) {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	failure, failed := s.failing[id]
	status, known := s.statuses[id]
	s.mu.Unlock()

	if failed {
		writeFailure(w, CodeDeviceFailed, failure)
		return
	}
	if !known {
		writeFailure(w, CodeDeviceFailed, "device not exist")
		return
	}
	writeRaw(w, status)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !s.verifyWithToken(w, r) {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			writeResult(w, d)
			return
		}
	}
	writeFailure(w, CodeDeviceFailed, "device not exist")
}

func (s *Server) verifyWithToken(w http.ResponseWriter, r *http.Request) bool {
	token := r.Header.Get("access_token")

	s.mu.Lock()
	current := s.token
	s.mu.Unlock()

	if token == "" || token != current {
		writeFailure(w, CodeTokenInvalid, "token invalid")
		return false
	}
	return s.verify(w, r, token)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, token string) bool {
	if r.Header.Get("client_id") != s.AccessID || r.Header.Get("sign_method") != tuya.SignMethod {
		writeFailure(w, CodeSignInvalid, "sign invalid")
		return false
	}
	expected := s.signer.Sign(r.Method, r.URL.RequestURI(), "", r.Header.Get("t"), token)
	if r.Header.Get("sign") != expected {
		writeFailure(w, CodeSignInvalid, "sign invalid")
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	writeRaw(w, raw)
}

func writeRaw(w http.ResponseWriter, result json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"result":  result,
		"t":       time.Now().UnixMilli(),
	})
}

func writeFailure(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    code,
		"msg":     msg,
		"t":       time.Now().UnixMilli(),
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import (
	"fmt"
	"strings"
	"sync"
)

// MemoryUserService is an in-memory UserService. Like the identity
// provider, it only completes operations through the shared Queue.
type MemoryUserService struct {
	q *Queue

	mu sync.Mutex
	// users maps identity token -> product user id.
	users map[string]string
	// names maps product user id -> display name.
	names map[string]string
	// knownTokens remembers identity tokens seen once via a continuance,
	// so CreateUser can bind them.
	pendingCreates map[string]string // continuance value -> identity token
	deviceUserID   string
	hasDeviceID    bool
	// duplicateDeviceLogins forces that many device logins to fail with
	// DuplicateNotAllowed before succeeding.
	duplicateDeviceLogins int

	expirySubs map[int]func()
	statusSubs map[int]func(bool)
	subSeq     int
	seq        int
}

// NewMemoryUserService creates an empty service delivering through q.
func NewMemoryUserService(q *Queue) *MemoryUserService {
	return &MemoryUserService{
		q:              q,
		users:          make(map[string]string),
		names:          make(map[string]string),
		pendingCreates: make(map[string]string),
		expirySubs:     make(map[int]func()),
		statusSubs:     make(map[int]func(bool)),
	}
}

// AddUser registers an existing product user for an identity token.
func (s *MemoryUserService) AddUser(idToken, userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[idToken] = userID
	s.names[userID] = displayName
}

// FailDeviceLogins makes the next n device logins report
// DuplicateNotAllowed, exercising the bounded retry path.
func (s *MemoryUserService) FailDeviceLogins(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicateDeviceLogins = n
}

// Login implements UserService.
func (s *MemoryUserService) Login(cred UserCredential, cb func(UserLoginResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cred.Method == MethodDeviceID {
		s.deviceLoginLocked(cred, cb)
		return
	}

	if !strings.HasPrefix(cred.Token, "idtok:") {
		s.q.Defer(func() { cb(UserLoginResult{Code: ResultInvalidCredentials}) })
		return
	}

	if userID, ok := s.users[cred.Token]; ok {
		s.q.Defer(func() { cb(UserLoginResult{Code: ResultSuccess, UserID: userID}) })
		return
	}

	// Unknown identity: recoverable through user creation.
	s.seq++
	tok := NewContinuanceToken(fmt.Sprintf("ct-create-%d", s.seq))
	s.pendingCreates[tok.value] = cred.Token
	s.q.Defer(func() {
		cb(UserLoginResult{Code: ResultInvalidUser, Continuance: tok})
	})
}

func (s *MemoryUserService) deviceLoginLocked(cred UserCredential, cb func(UserLoginResult)) {
	if !s.hasDeviceID {
		s.q.Defer(func() { cb(UserLoginResult{Code: ResultNotFound}) })
		return
	}
	if s.duplicateDeviceLogins > 0 {
		s.duplicateDeviceLogins--
		s.q.Defer(func() { cb(UserLoginResult{Code: ResultDuplicateNotAllowed}) })
		return
	}
	if s.deviceUserID == "" {
		s.seq++
		s.deviceUserID = fmt.Sprintf("pu-device-%d", s.seq)
		name := cred.DisplayName
		if name == "" {
			name = "device-user"
		}
		s.names[s.deviceUserID] = name
	}
	userID := s.deviceUserID
	s.q.Defer(func() { cb(UserLoginResult{Code: ResultSuccess, UserID: userID}) })
}

// CreateUser implements UserService.
func (s *MemoryUserService) CreateUser(tok *ContinuanceToken, cb func(UserCreateResult)) {
	value, err := tok.Consume()
	if err != nil {
		s.q.Defer(func() { cb(UserCreateResult{Code: ResultInvalidParameters}) })
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idToken, ok := s.pendingCreates[value]
	if !ok {
		s.q.Defer(func() { cb(UserCreateResult{Code: ResultNotFound}) })
		return
	}
	delete(s.pendingCreates, value)

	s.seq++
	userID := fmt.Sprintf("pu-%04d", s.seq)
	s.users[idToken] = userID
	s.names[userID] = strings.TrimPrefix(idToken, "idtok:")
	s.q.Defer(func() { cb(UserCreateResult{Code: ResultSuccess, UserID: userID}) })
}

// CreateDeviceID implements UserService.
func (s *MemoryUserService) CreateDeviceID(_ string, cb func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasDeviceID {
		s.q.Defer(func() { cb(ResultDuplicateNotAllowed) })
		return
	}
	s.hasDeviceID = true
	s.q.Defer(func() { cb(ResultSuccess) })
}

// CopyDisplayName implements UserService.
func (s *MemoryUserService) CopyDisplayName(userID string) (Result, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.names[userID]
	if !ok {
		return ResultNotFound, ""
	}
	return ResultSuccess, name
}

// NotifyAuthExpiration implements UserService.
func (s *MemoryUserService) NotifyAuthExpiration(cb func()) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subSeq++
	id := s.subSeq
	s.expirySubs[id] = cb
	return NewSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.expirySubs, id)
	})
}

// NotifyLoginStatusChanged implements UserService.
func (s *MemoryUserService) NotifyLoginStatusChanged(cb func(bool)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subSeq++
	id := s.subSeq
	s.statusSubs[id] = cb
	return NewSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.statusSubs, id)
	})
}

// ExpireAuth pushes an auth-expiration notification to all subscribers.
func (s *MemoryUserService) ExpireAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cb := range s.expirySubs {
		cb := cb
		s.q.Defer(cb)
	}
}

// SetLoggedOut pushes a logged-out status notification to all subscribers.
func (s *MemoryUserService) SetLoggedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cb := range s.statusSubs {
		cb := cb
		s.q.Defer(func() { cb(false) })
	}
}

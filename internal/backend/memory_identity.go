// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import (
	"fmt"
	"sync"
)

// MemoryIdentityProvider is an in-memory IdentityProvider for local play and
// tests. Completions are delivered through the shared Queue, so nothing
// fires until the poll loop ticks.
type MemoryIdentityProvider struct {
	q *Queue

	mu sync.Mutex
	// accounts maps credential token -> account id. Browser-portal logins
	// present an empty token, so "" is a valid key.
	accounts map[string]string
	// linkRequired holds credential tokens whose login must report
	// InvalidUser with a continuance token until LinkAccount succeeds.
	linkRequired map[string]string // credential token -> account id granted after linking
	// failWith, when non-nil, forces the next Login completion code.
	failWith *Result
	seq      int
}

// NewMemoryIdentityProvider creates an empty provider delivering through q.
func NewMemoryIdentityProvider(q *Queue) *MemoryIdentityProvider {
	return &MemoryIdentityProvider{
		q:            q,
		accounts:     make(map[string]string),
		linkRequired: make(map[string]string),
	}
}

// AddAccount registers a credential token that logs straight in.
func (p *MemoryIdentityProvider) AddAccount(credToken, accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[credToken] = accountID
}

// RequireLink makes logins with credToken report InvalidUser until the
// returned continuance token is consumed by LinkAccount.
func (p *MemoryIdentityProvider) RequireLink(credToken, accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.linkRequired[credToken] = accountID
}

// FailNextLogin forces the next Login to complete with code.
func (p *MemoryIdentityProvider) FailNextLogin(code Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = &code
}

// Login implements IdentityProvider.
func (p *MemoryIdentityProvider) Login(cred Credential, cb func(LoginResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		code := *p.failWith
		p.failWith = nil
		p.q.Defer(func() { cb(LoginResult{Code: code}) })
		return
	}

	if accountID, ok := p.linkRequired[cred.Token]; ok {
		p.seq++
		tok := NewContinuanceToken(fmt.Sprintf("ct-link-%d", p.seq))
		// Remember which account the continuance resolves to.
		value := tok.value
		p.accounts["link:"+value] = accountID
		p.q.Defer(func() {
			cb(LoginResult{Code: ResultInvalidUser, Continuance: tok})
		})
		return
	}

	if accountID, ok := p.accounts[cred.Token]; ok {
		p.q.Defer(func() {
			cb(LoginResult{Code: ResultSuccess, AccountID: accountID})
		})
		return
	}

	p.q.Defer(func() { cb(LoginResult{Code: ResultInvalidCredentials}) })
}

// LinkAccount implements IdentityProvider.
func (p *MemoryIdentityProvider) LinkAccount(tok *ContinuanceToken, cb func(Result)) {
	value, err := tok.Consume()
	if err != nil {
		p.q.Defer(func() { cb(ResultInvalidParameters) })
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	accountID, ok := p.accounts["link:"+value]
	if !ok {
		p.q.Defer(func() { cb(ResultNotFound) })
		return
	}
	delete(p.accounts, "link:"+value)

	// Linking succeeded: every credential that pointed at this pending
	// link now logs straight in.
	for credToken, pending := range p.linkRequired {
		if pending == accountID {
			delete(p.linkRequired, credToken)
			p.accounts[credToken] = accountID
		}
	}
	p.q.Defer(func() { cb(ResultSuccess) })
}

// CopyIDToken implements IdentityProvider. Tokens are derived from the
// account id so MemoryUserService can validate them.
func (p *MemoryIdentityProvider) CopyIDToken(accountID string) (Result, string) {
	if accountID == "" {
		return ResultInvalidParameters, ""
	}
	return ResultSuccess, "idtok:" + accountID
}

// StaticTicketSource is a TicketSource returning a fixed ticket, or an
// error when the ticket is empty.
type StaticTicketSource string

// SessionTicket implements TicketSource.
func (s StaticTicketSource) SessionTicket() (string, error) {
	if s == "" {
		return "", fmt.Errorf("storefront not running or user not logged in")
	}
	return string(s), nil
}

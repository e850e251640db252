// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package session

import (
	"github.com/samber/oops"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/pkg/errutil"
)

// FindSessions searches for joinable public sessions. Every search
// requires at least one open slot; attrKey/attrValue add an optional
// equality filter. The previous result set is fully released before the
// new one is retained, so exactly one generation of descriptors is live
// at any time.
func (o *Orchestrator) FindSessions(attrKey, attrValue string, maxResults int) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	if o.searching {
		return oops.Code("SESSION_SEARCH_IN_PROGRESS").Errorf("a search is already running")
	}
	if maxResults <= 0 {
		maxResults = defaultMaxSearchResults
	}

	search, code := o.svc.CreateSearch(maxResults)
	if !code.OK() {
		return oops.Code("SESSION_SEARCH_FAILED").
			With("result", code.String()).
			Errorf("could not begin session search: %s", code)
	}
	search.SetMinOpenSlots(1)
	if attrKey != "" {
		search.SetParameter(attrKey, attrValue)
	}

	o.searching = true
	Operations.WithLabelValues("search").Inc()
	o.logger.Info("searching sessions", "attr_key", attrKey, "max_results", maxResults)
	o.svc.Find(search, uid, func(code backend.Result) {
		o.onFindComplete(search, code)
	})
	return nil
}

func (o *Orchestrator) onFindComplete(search *backend.SessionSearch, code backend.Result) {
	o.searching = false

	if !code.OK() {
		search.Release()
		err := oops.Code("SESSION_SEARCH_FAILED").
			With("result", code.String()).
			Errorf("session search failed: %s", code)
		errutil.LogError(o.logger, "session search failed", err)
		o.sink.Emit(events.SessionSearchFinished{Success: false, ErrorMessage: errutil.Message(err)})
		return
	}

	o.releaseResults()
	var summaries []events.SessionSummary
	for i := 0; i < search.ResultCount(); i++ {
		desc, copyCode := search.CopyResult(i)
		if !copyCode.OK() {
			o.logger.Warn("skipping unreadable search result", "index", i, "result", copyCode.String())
			continue
		}
		info := desc.Info()
		o.results = append(o.results, desc)
		summaries = append(summaries, events.SessionSummary{
			ID:         info.ID,
			OpenSlots:  info.OpenSlots,
			MaxPlayers: info.MaxPlayers,
			Attributes: info.Attributes,
		})
	}
	search.Release()

	o.logger.Info("session search finished", "results", len(summaries))
	o.sink.Emit(events.SessionSearchFinished{Success: true, Sessions: summaries})
}

// ResultCount returns the size of the most recent search's result set.
func (o *Orchestrator) ResultCount() int { return len(o.results) }

func (o *Orchestrator) releaseResults() {
	for _, desc := range o.results {
		if !desc.Released() {
			desc.Release()
		}
	}
	o.results = nil
}

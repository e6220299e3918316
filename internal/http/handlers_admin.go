package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountJSON(a))
	}
	NewJSONResponse(map[string]any{"accounts": out}).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	a, err := s.ledger.AddAccount(r.Context(), req.toAccount())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse(newAccountJSON(a)).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	a, err := s.ledger.SaveAccount(r.Context(), r.PathValue("name"), req.toAccount())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse(newAccountJSON(a)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveAccount(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse(nil).Status(http.StatusNoContent).Write(w)
}

type locksJSON struct {
	LockedMonths []core.Month `json:"locked_months"`
}

func (s *Server) handleGetLocks(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Admin(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(locksJSON{LockedMonths: cfg.SortedLockedMonths()}).Write(w)
}

func (s *Server) handlePutLocks(w http.ResponseWriter, r *http.Request) {
	var req locksJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := s.ledger.SetLockedMonths(r.Context(), req.LockedMonths); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.handleGetLocks(w, r)
}

type rulesJSON struct {
	Text       string   `json:"text"`
	Locked     bool     `json:"locked"`
	Categories []string `json:"categories"`
}

func newRulesJSON(rules core.Rules, locked bool) rulesJSON {
	return rulesJSON{Text: rules.String(), Locked: locked, Categories: rules.Categories()}
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Admin(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(newRulesJSON(cfg.Rules, cfg.RulesLocked)).Write(w)
}

// handlePutRules replaces the rules with the posted text. Malformed lines
// are reported with their line number.
func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	rules, err := s.ledger.SaveRules(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse(newRulesJSON(rules, false)).Write(w)
}

func (s *Server) handlePutRulesLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := s.ledger.SetRulesLocked(r.Context(), req.Locked); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.handleGetRules(w, r)
}

type recurringJSON struct {
	Preferences []core.RecurringPreference `json:"preferences"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Admin(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	prefs := cfg.RecurringPrefs
	if prefs == nil {
		prefs = []core.RecurringPreference{}
	}
	NewJSONResponse(recurringJSON{Preferences: prefs}).Write(w)
}

// handlePutRecurring upserts one preference by merchant key.
func (s *Server) handlePutRecurring(w http.ResponseWriter, r *http.Request) {
	var p core.RecurringPreference
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	p.Nickname = sanitizeInput(p.Nickname)
	p.Category = sanitizeInput(p.Category)
	if err := s.ledger.SaveRecurringPreference(r.Context(), p); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.handleListRecurring(w, r)
}

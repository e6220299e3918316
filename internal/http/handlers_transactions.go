package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

// handleListTransactions searches one month: ?month=, repeated ?category=
// and a free-text ?q= over the notes.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	q := r.URL.Query()
	txs, err := s.ledger.Search(r.Context(), month, q["category"], sanitizeInput(q.Get("q")))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse(map[string]any{
		"month":        month,
		"transactions": newTransactionResponses(txs),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	saved, err := s.ledger.AddTransaction(r.Context(), tx, req.mark())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse(newTransactionResponse(saved)).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx.ID = r.PathValue("id")
	saved, err := s.ledger.EditTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse(newTransactionResponse(saved)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse(nil).Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Undo(r.Context()); err != nil {
		writeError(w, r, applog.OpUndo, err)
		return
	}
	NewJSONResponse(map[string]any{"undone": true, "can_undo": s.ledger.CanUndo()}).Write(w)
}


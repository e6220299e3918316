package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		return badRequestError{fmt.Errorf("invalid request body: %w", err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequestError{errors.New("invalid request body: trailing data")}
	}
	return nil
}

// monthParam reads ?month=YYYY-MM, falling back to the selected month and
// then to the month of today.
func (s *Server) monthParam(r *http.Request) (core.Month, error) {
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		return core.ParseMonth(v)
	}
	if m := s.ledger.SelectedMonth(); !m.IsZero() {
		return m, nil
	}
	return core.MonthOf(s.ledger.Today()), nil
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

type recurringMarkRequest struct {
	DayOfMonth int    `json:"day_of_month"`
	Nickname   string `json:"nickname"`
}

type transactionRequest struct {
	Date      string                `json:"date"`
	Type      string                `json:"type"`
	Amount    decimal.Decimal       `json:"amount"`
	Pay       string                `json:"pay"`
	Account   string                `json:"account"`
	Category  string                `json:"category"`
	Notes     string                `json:"notes"`
	Owner     string                `json:"owner"`
	Recurring *recurringMarkRequest `json:"recurring,omitempty"`
}

// toTransaction parses the request fields. An empty pay method is left for
// Normalize to fill in on bank-only types.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	txType, err := core.ParseTxType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	var pay core.PayMethod
	if strings.TrimSpace(req.Pay) != "" {
		if pay, err = core.ParsePayMethod(req.Pay); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		Date:      date,
		Owner:     sanitizeInput(req.Owner),
		Type:      txType,
		Amount:    req.Amount,
		PayMethod: pay,
		Account:   sanitizeInput(req.Account),
		Category:  sanitizeInput(req.Category),
		Notes:     sanitizeInput(req.Notes),
	}, nil
}

func (req transactionRequest) mark() *services.RecurringMark {
	if req.Recurring == nil {
		return nil
	}
	return &services.RecurringMark{
		DayOfMonth: req.Recurring.DayOfMonth,
		Nickname:   sanitizeInput(req.Recurring.Nickname),
	}
}

type transactionResponse struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Month      core.Month      `json:"month"`
	Owner      string          `json:"owner"`
	Type       core.TxType     `json:"type"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Pay        core.PayMethod  `json:"pay"`
	Account    string          `json:"account,omitempty"`
	Category   string          `json:"category"`
	Notes      string          `json:"notes"`
	CreatedAt  string          `json:"created_at"`
	AutoTag    string          `json:"auto_tag,omitempty"`
	Provenance string          `json:"provenance"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		Date:       tx.Date.Format(time.DateOnly),
		Month:      tx.Month(),
		Owner:      tx.Owner,
		Type:       tx.Type,
		Kind:       tx.Type.Canonical(),
		Amount:     tx.Amount,
		Pay:        tx.PayMethod,
		Account:    tx.Account,
		Category:   tx.Category,
		Notes:      tx.Notes,
		CreatedAt:  core.FormatCreatedAt(tx.CreatedAt),
		AutoTag:    tx.AutoTag,
		Provenance: core.ProvenanceOf(tx.AutoTag).String(),
	}
}

func newTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionResponse(tx))
	}
	return out
}

type accountJSON struct {
	Name       string          `json:"name"`
	Emoji      string          `json:"emoji"`
	Limit      decimal.Decimal `json:"limit"`
	BillingDay int             `json:"billing_day"`
	Label      string          `json:"label,omitempty"`
}

func (a accountJSON) toAccount() core.Account {
	return core.Account{
		Name:       sanitizeInput(a.Name),
		Emoji:      sanitizeInput(a.Emoji),
		Limit:      a.Limit,
		BillingDay: a.BillingDay,
	}
}

func newAccountJSON(a core.Account) accountJSON {
	return accountJSON{
		Name:       a.Name,
		Emoji:      a.Emoji,
		Limit:      a.Limit,
		BillingDay: a.BillingDay,
		Label:      a.Label(),
	}
}

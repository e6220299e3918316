package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/retry"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	retry         retry.Policy

	mu       sync.Mutex
	sheetIDs map[string]int64
	ensured  bool
}

// Ensure interface conformance
var (
	_ ports.Store             = (*Client)(nil)
	_ ports.TransactionMirror = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	Retry           retry.Policy
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		Retry:           retry.Default(),
	})
}

// New creates a Sheets client with service account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Default()
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, retry: opts.Retry}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

var tabHeaders = map[string][]string{
	TransactionsTab: TransactionHeaders,
	AccountsTab:     AccountHeaders,
	AdminTab:        AdminHeaders,
}

// ensureTabs creates missing tabs and repairs header rows once per client.
func (c *Client) ensureTabs(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensured {
		return nil
	}

	var ss *gsheet.Spreadsheet
	err := c.retry.Do(ctx, "get spreadsheet", func(ctx context.Context) error {
		var err error
		ss, err = c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	ids := map[string]int64{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	var requests []*gsheet.Request
	for _, tab := range []string{TransactionsTab, AccountsTab, AdminTab} {
		if _, ok := ids[tab]; !ok {
			requests = append(requests, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			}})
		}
	}
	if len(requests) > 0 {
		var resp *gsheet.BatchUpdateSpreadsheetResponse
		err := c.retry.Do(ctx, "add tabs", func(ctx context.Context) error {
			var err error
			resp, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("add tabs: %w", err)
		}
		for _, r := range resp.Replies {
			if r.AddSheet != nil && r.AddSheet.Properties != nil {
				ids[r.AddSheet.Properties.Title] = r.AddSheet.Properties.SheetId
				slog.InfoContext(ctx, "Created spreadsheet tab", "tab", r.AddSheet.Properties.Title)
			}
		}
	}

	for tab, headers := range tabHeaders {
		rng := fmt.Sprintf("%s!A1:%s1", tab, lastColumn(headers))
		var current []string
		err := c.retry.Do(ctx, "read header", func(ctx context.Context) error {
			resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
			if err != nil {
				return err
			}
			if len(resp.Values) > 0 {
				current = toStrings(resp.Values[0])
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		if headersMatch(current, headers) {
			continue
		}
		row := make([]any, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		if err := c.update(ctx, rng, [][]any{row}); err != nil {
			return fmt.Errorf("repair header %s: %w", tab, err)
		}
		slog.WarnContext(ctx, "Repaired spreadsheet header", "tab", tab)
	}

	c.sheetIDs = ids
	c.ensured = true
	return nil
}

func (c *Client) sheetID(tab string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sheetIDs[tab]
}

// readTab returns all rows of tab, header first.
func (c *Client) readTab(ctx context.Context, tab string) ([][]string, error) {
	if err := c.ensureTabs(ctx); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!A:%s", tab, lastColumn(tabHeaders[tab]))
	var values [][]string
	err := c.retry.Do(ctx, "read "+tab, func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = toStringMatrix(resp.Values)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return values, nil
}

func (c *Client) update(ctx context.Context, rng string, rows [][]any) error {
	return c.retry.Do(ctx, "update "+rng, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

func (c *Client) appendRow(ctx context.Context, tab string, row []any) error {
	rng := fmt.Sprintf("%s!A1", tab)
	return c.retry.Do(ctx, "append "+tab, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}

func (c *Client) batch(ctx context.Context, op string, req *gsheet.Request) error {
	return c.retry.Do(ctx, op, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{req},
		}).Context(ctx).Do()
		return err
	})
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.readTab(ctx, TransactionsTab)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	h := newHeaderIndex(values[0], TransactionHeaders)
	out := make([]core.Transaction, 0, len(values)-1)
	skipped := 0
	for _, row := range values[1:] {
		tx, ok := decodeTransaction(h, row)
		if !ok {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unreadable transaction rows", "tab", TransactionsTab, "skipped", skipped)
	}
	return out, nil
}

func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	if err := c.ensureTabs(ctx); err != nil {
		return err
	}
	if err := c.appendRow(ctx, TransactionsTab, encodeTransaction(tx)); err != nil {
		return fmt.Errorf("append transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (c *Client) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	values, err := c.readTab(ctx, TransactionsTab)
	if err != nil {
		return err
	}
	n := findRow(values, tx.ID)
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", TransactionsTab, n, lastColumn(TransactionHeaders), n)
	if err := c.update(ctx, rng, [][]any{encodeTransaction(tx)}); err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) (int, error) {
	values, err := c.readTab(ctx, TransactionsTab)
	if err != nil {
		return 0, err
	}
	n := findRow(values, id)
	if n == 0 {
		return 0, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	err = c.batch(ctx, "delete row", &gsheet.Request{DeleteDimension: &gsheet.DeleteDimensionRequest{
		Range: &gsheet.DimensionRange{
			SheetId:    c.sheetID(TransactionsTab),
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		},
	}})
	if err != nil {
		return 0, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return n - 2, nil
}

func (c *Client) RestoreTransaction(ctx context.Context, tx core.Transaction, index int) error {
	values, err := c.readTab(ctx, TransactionsTab)
	if err != nil {
		return err
	}
	n := restoreRow(index, max(0, len(values)-1))
	err = c.batch(ctx, "insert row", &gsheet.Request{InsertDimension: &gsheet.InsertDimensionRequest{
		Range: &gsheet.DimensionRange{
			SheetId:    c.sheetID(TransactionsTab),
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		},
	}})
	if err != nil {
		return fmt.Errorf("insert row for %s: %w", tx.ID, err)
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", TransactionsTab, n, lastColumn(TransactionHeaders), n)
	if err := c.update(ctx, rng, [][]any{encodeTransaction(tx)}); err != nil {
		return fmt.Errorf("restore transaction %s: %w", tx.ID, err)
	}
	return nil
}

// UpsertTransaction implements ports.TransactionMirror.
func (c *Client) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	err := c.UpdateTransaction(ctx, tx)
	if errors.Is(err, core.ErrNotFound) {
		return c.AppendTransaction(ctx, tx)
	}
	return err
}

// RemoveTransaction implements ports.TransactionMirror.
func (c *Client) RemoveTransaction(ctx context.Context, id string) error {
	_, err := c.DeleteTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	values, err := c.readTab(ctx, AccountsTab)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	h := newHeaderIndex(values[0], AccountHeaders)
	var out []core.Account
	for _, row := range values[1:] {
		if a, ok := decodeAccount(h, row); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Client) ReplaceAccounts(ctx context.Context, accounts []core.Account) error {
	if err := c.ensureTabs(ctx); err != nil {
		return err
	}
	clearRng := fmt.Sprintf("%s!A2:%s", AccountsTab, lastColumn(AccountHeaders))
	err := c.retry.Do(ctx, "clear accounts", func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRng, err)
	}
	if len(accounts) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, encodeAccount(a))
	}
	rng := fmt.Sprintf("%s!A2:%s%d", AccountsTab, lastColumn(AccountHeaders), len(rows)+1)
	if err := c.update(ctx, rng, rows); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

func (c *Client) AdminValues(ctx context.Context) (map[string]string, error) {
	values, err := c.readTab(ctx, AdminTab)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		out[key] = safeGet(row, 1)
	}
	return out, nil
}

func (c *Client) SetAdminValue(ctx context.Context, key, value string) error {
	values, err := c.readTab(ctx, AdminTab)
	if err != nil {
		return err
	}
	if n := findRow(values, key); n > 0 {
		rng := fmt.Sprintf("%s!B%d", AdminTab, n)
		if err := c.update(ctx, rng, [][]any{{value}}); err != nil {
			return fmt.Errorf("set admin %s: %w", key, err)
		}
		return nil
	}
	if err := c.appendRow(ctx, AdminTab, []any{key, value}); err != nil {
		return fmt.Errorf("add admin %s: %w", key, err)
	}
	return nil
}

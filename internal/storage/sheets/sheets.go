// Package sheets keeps the ledger as rows of one Google Sheets tab:
// name | category | date | amount, header row first.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab used when none is configured.
const DefaultSheetName = "Ledger"

var header = []any{"name", "category", "date", "amount"}

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// rows is the tab height last seen by Read or Write. Calls are
	// serialised by the ledger service.
	rows int
}

var _ storage.Backend = (*Client)(nil)

// New creates a Sheets backend authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile, "size", len(data))
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:D", c.sheetName)
}

func (c *Client) Read(ctx context.Context) ([]core.Transaction, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.dataRange(), err)
	}
	c.rows = len(resp.Values)
	return fromRows(resp.Values)
}

// Write overwrites the tab from A1 in a single update, blanking the rows
// of a longer previous list in the same request. A failed update leaves
// the previous snapshot intact. Rows below what was last seen are cleared
// afterwards; that step only logs on failure, since the list itself is
// already stored.
func (c *Client) Write(ctx context.Context, list []core.Transaction) error {
	rows := padRows(toRows(list), c.rows)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheetName), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", c.dataRange(), err)
	}
	c.rows = len(list) + 1

	below := fmt.Sprintf("%s!A%d:D", c.sheetName, len(rows)+1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, below, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		c.logger.WarnContext(ctx, "Clearing rows below the ledger failed",
			log.FieldOperation, log.OpSave,
			"range", below,
			log.FieldError, err)
	}
	c.logger.DebugContext(ctx, "Sheet rewritten", log.FieldCount, len(list))
	return nil
}

// padRows appends blank rows until rows covers height, so one update also
// erases the tail of a longer previous list.
func padRows(rows [][]any, height int) [][]any {
	for len(rows) < height {
		rows = append(rows, []any{"", "", "", ""})
	}
	return rows
}

// Ping fetches the spreadsheet metadata.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

// toRows renders the header and one row per transaction. Amounts are
// written as strings so no precision is lost in the sheet.
func toRows(list []core.Transaction) [][]any {
	rows := make([][]any, 0, len(list)+1)
	rows = append(rows, header)
	for _, t := range list {
		rows = append(rows, []any{t.Name, string(t.Category), t.Date, t.Amount.String()})
	}
	return rows
}

// fromRows parses a values matrix. The first row is taken as the header
// when its first cell reads "name"; blank rows are skipped.
func fromRows(values [][]any) ([]core.Transaction, error) {
	list := make([]core.Transaction, 0, len(values))
	for i, row := range values {
		cols := toStrings(row)
		if i == 0 && strings.EqualFold(safeGet(cols, 0), "name") {
			continue
		}
		if isBlank(cols) {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(safeGet(cols, 3)))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d amount %q: %w", storage.ErrMalformed, i+1, safeGet(cols, 3), core.ErrInvalidAmount)
		}
		list = append(list, core.Transaction{
			Name:     safeGet(cols, 0),
			Category: core.Category(safeGet(cols, 1)),
			Date:     safeGet(cols, 2),
			Amount:   amount,
		})
	}
	return list, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case string:
			out[i] = x
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

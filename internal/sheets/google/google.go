package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"jangbu/internal/core"
	ports "jangbu/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	salesSheet    string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Sales").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	salesSheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if salesSheet == "" {
		salesSheet = "Sales"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		salesSheet:    salesSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
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
	return service, nil
}

// AppendReport writes one row per menu line, columns date, platform,
// menu, count, amount. Entries without a menu breakdown (converted
// legacy records) produce a single row with an empty menu cell and the
// platform totals.
func (c *Client) AppendReport(ctx context.Context, r core.DailyReport) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rows := reportRows(r)

	// Find the next empty row from the sheet dimensions first.
	rng := fmt.Sprintf("%s!A:A", c.salesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.salesSheet, err)
	}
	nextRow := len(resp.Values) + 1
	lastRow := nextRow + len(rows) - 1

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.salesSheet, nextRow, lastRow)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// reportRows flattens a report into spreadsheet rows.
func reportRows(r core.DailyReport) [][]any {
	date := r.Date.String()
	var rows [][]any
	for _, e := range r.Entries {
		if len(e.MenuSales) == 0 {
			rows = append(rows, []any{date, string(e.Platform), "", e.PlatformTotalCount, e.PlatformTotalAmount.Won})
			continue
		}
		for _, s := range e.MenuSales {
			rows = append(rows, []any{date, string(e.Platform), s.MenuName, s.Count, s.Amount.Won})
		}
	}
	return rows
}

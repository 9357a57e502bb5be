package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/Sternrassler/wikitop/pkg/pagination"
)

// continueToken accepts excontinue as either a JSON string or number;
// the API sends a number with format=json.
type continueToken string

func (t *continueToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = continueToken(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("excontinue: %w", err)
	}
	*t = continueToken(n.String())
	return nil
}

type extractsResponse struct {
	BatchComplete *json.RawMessage `json:"batchcomplete"`
	Continue      *struct {
		ExContinue continueToken `json:"excontinue"`
	} `json:"continue"`
	Query *struct {
		Normalized []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"normalized"`
		Pages map[string]struct {
			PageID  int64   `json:"pageid"`
			Title   string  `json:"title"`
			Extract *string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// extractsParams builds the query for one extracts request.
func extractsParams(titles []string, continuation string) url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("explaintext", "true")
	params.Set("exsectionformat", "plain")
	params.Set("exintro", "true")
	params.Set("exlimit", "max")
	if continuation != "" {
		params.Set("excontinue", continuation)
	}
	return params
}

// QueryExtracts issues one plain-text intro extracts query for titles.
// It implements pagination.PageSource.
func (c *Client) QueryExtracts(ctx context.Context, project string, titles []string, continuation string) (*pagination.Page, error) {
	var resp extractsResponse
	if err := c.gateway.GetJSON(ctx, c.contentURL(project), extractsParams(titles, continuation), &resp); err != nil {
		return nil, fmt.Errorf("query extracts: %w", err)
	}

	if resp.Error != nil {
		return nil, malformed("api error %s: %s", resp.Error.Code, resp.Error.Info)
	}
	if resp.Query == nil && resp.BatchComplete == nil && resp.Continue == nil {
		return nil, malformed("extracts response has no query")
	}

	page := &pagination.Page{}
	if resp.Continue != nil {
		page.Continue = string(resp.Continue.ExContinue)
	}
	if resp.Query == nil {
		return page, nil
	}

	for _, n := range resp.Query.Normalized {
		page.Normalized = append(page.Normalized, pagination.Normalization{From: n.From, To: n.To})
	}

	// Pages arrive as an object keyed by page id; sort keys for a stable order.
	for _, key := range slices.Sorted(maps.Keys(resp.Query.Pages)) {
		p := resp.Query.Pages[key]
		page.Pages = append(page.Pages, pagination.PageEntry{
			Title:   p.Title,
			PageID:  p.PageID,
			Extract: p.Extract,
		})
	}

	c.logger.Debug().
		Str("project", project).
		Int("titles", len(titles)).
		Int("pages", len(page.Pages)).
		Int("normalized", len(page.Normalized)).
		Str("excontinue", page.Continue).
		Msg("Extracts page received")

	return page, nil
}

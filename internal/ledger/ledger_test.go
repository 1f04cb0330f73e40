package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeClient(t *testing.T, handler http.Handler) *gocardless.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return gocardless.NewClient(gocardless.Config{
		BaseURL: srv.URL,
		Version: "2015-07-06",
		Timeout: 5 * time.Second,
	}, "test-token", discardLogger())
}

// singlePage renders a terminal list page for the given resource type.
func singlePage(resourceType string, items ...string) string {
	return fmt.Sprintf(`{%q: [%s], "meta": {"cursors": {"after": null}}}`,
		resourceType, strings.Join(items, ","))
}

// envelope renders a singular-resource response.
func envelope(resourceType, body string) string {
	return fmt.Sprintf(`{%q: %s}`, resourceType, body)
}

// fakeAPI serves singular resources from a path map and list pages from a
// query-aware handler. Unregistered paths fail the test.
type fakeAPI struct {
	t       *testing.T
	objects map[string]string
	lists   func(r *http.Request) (string, bool)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if body, ok := f.objects[r.URL.Path]; ok {
		fmt.Fprint(w, body)
		return
	}
	if f.lists != nil {
		if body, ok := f.lists(r); ok {
			fmt.Fprint(w, body)
			return
		}
	}
	f.t.Errorf("unexpected request: %s %s", r.URL.Path, r.URL.RawQuery)
	http.NotFound(w, r)
}

// Common fixture objects shared across the ledger tests.
const (
	mandateMD001 = `{"id": "MD001", "scheme": "sepa_core", "links": {"creditor": "CR001", "customer_bank_account": "BA001"}}`
	accountBA001 = `{"id": "BA001", "account_number_ending": "2846", "account_holder_name": "JANE DOE"}`
)

func customerRemovedError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{
		"error": {
			"type": "invalid_api_usage",
			"message": "Not found",
			"errors": [{"reason": "customer_data_removed"}]
		}
	}`)
}

package httphandler

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	writeRawJSON(w, status, data)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// TabResponse is the JSON representation of an open tab.
type TabResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	ThreadKey string `json:"thread_key,omitempty"`
	Active    bool   `json:"active"`
	OpenedAt  string `json:"opened_at"`
}

// OpenTabRequest is the JSON body for the open tab endpoint. When HTML is
// set the page is loaded from it instead of being fetched.
type OpenTabRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// MutationRequest is the JSON body for the mutations endpoint. It appends
// HTML to every element matching Selector, or removes them when Remove is set.
type MutationRequest struct {
	Selector string `json:"selector"`
	HTML     string `json:"html,omitempty"`
	Remove   bool   `json:"remove,omitempty"`
}

// MutationResponse reports how many elements a mutation touched.
type MutationResponse struct {
	Matched int `json:"matched"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Tabs   int    `json:"tabs"`
	Time   string `json:"time"`
}

// toTabResponse converts a domain Tab to its JSON response representation.
func toTabResponse(tab model.Tab) TabResponse {
	return TabResponse{
		ID:        tab.ID,
		URL:       tab.URL,
		Kind:      string(tab.Kind),
		ThreadKey: string(tab.ThreadKey),
		Active:    tab.Active,
		OpenedAt:  tab.OpenedAt.UTC().Format(time.RFC3339),
	}
}

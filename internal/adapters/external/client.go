package external

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// restClient is the shared base of the external HTTP clients: session,
// auth, and retry plumbing. Embedding clients are safe for concurrent
// use.
type restClient struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func newRESTClient(baseURL, apiKey string) (restClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return restClient{}, errors.New("external client: base url is empty")
	}

	return restClient{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// normalize ensures consistent request keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

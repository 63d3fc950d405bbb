package nlp

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"

	"github.com/AA-Fatima/599-cal/internal/resilience"
)

// HTTPClassifier calls a model server's POST /predict endpoint.
type HTTPClassifier struct {
	client *resty.Client
}

// NewHTTPClassifier creates a classifier client for the given base URL.
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{client: newClient(baseURL, timeout)}
}

func newClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (c *HTTPClassifier) Predict(ctx context.Context, text string) (Intent, error) {
	var out predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Text: text}).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return Intent{}, eris.Wrap(err, "nlp: predict request")
	}
	if resp.IsError() {
		return Intent{}, statusError("nlp: predict returned %s", resp)
	}
	return Intent{Label: out.Label, Confidence: out.Confidence}, nil
}

// HTTPExtractor calls a model server's POST /extract endpoint.
type HTTPExtractor struct {
	client *resty.Client
}

// NewHTTPExtractor creates an extractor client for the given base URL.
func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{client: newClient(baseURL, timeout)}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Dishes      []string `json:"dishes"`
	Ingredients []string `json:"ingredients"`
}

func (c *HTTPExtractor) Extract(ctx context.Context, text string) (Entities, error) {
	var out extractResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(extractRequest{Text: text}).
		SetResult(&out).
		Post("/extract")
	if err != nil {
		return Entities{}, eris.Wrap(err, "nlp: extract request")
	}
	if resp.IsError() {
		return Entities{}, statusError("nlp: extract returned %s", resp)
	}
	return Entities{Dishes: out.Dishes, Ingredients: out.Ingredients}, nil
}

// statusError maps a non-2xx model-server response to an error; 5xx is
// transient (the server may recover), 4xx is not.
func statusError(format string, resp *resty.Response) error {
	err := eris.Errorf(format, resp.Status())
	if resp.StatusCode() >= 500 {
		return resilience.NewTransientError(err, resp.StatusCode())
	}
	return err
}

// Package paypal is a minimal client for the PayPal Orders v2 API: create an
// order, capture it, and report the captured amount and payer contact. The
// ledger only ever consumes the capture result; payment protocol details stay
// here.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// SandboxBaseURL is the PayPal sandbox API endpoint.
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	// LiveBaseURL is the PayPal production API endpoint.
	LiveBaseURL = "https://api-m.paypal.com"

	defaultRequestTimeout = 20 * time.Second
	maxErrorBodyBytes     = 512
)

// StatusCompleted is the only capture status that funds a quota grant.
const StatusCompleted = "COMPLETED"

// ErrGateway indicates PayPal rejected or failed a request.
var ErrGateway = errors.New("paypal request failed")

// Client talks to the PayPal Orders API using client-credentials auth.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// New constructs a client. An empty baseURL selects the sandbox endpoint.
func New(baseURL, clientID, clientSecret string) *Client {
	if baseURL == "" {
		baseURL = SandboxBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Capture is the outcome of a capture call. PayerContact carries the payer's
// email when PayPal reports one.
type Capture struct {
	OrderID      string
	Status       string
	Amount       float64
	Currency     string
	PayerContact string
}

// Completed reports whether the capture funds a grant.
func (c *Capture) Completed() bool {
	return c.Status == StatusCompleted
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// accessToken fetches an OAuth token via the client-credentials grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	var token tokenResponse
	if errDo := c.do(req, &token); errDo != nil {
		return "", errDo
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrGateway)
	}
	return token.AccessToken, nil
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder opens a CAPTURE-intent order for the given amount and returns
// the order ID the front end hands to the PayPal SDK.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         strconv.FormatFloat(amount, 'f', 2, 64),
			},
			"description": description,
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var order createOrderResponse
	if errDo := c.do(req, &order); errDo != nil {
		return "", errDo
	}
	if order.ID == "" {
		return "", fmt.Errorf("%w: order response missing id", ErrGateway)
	}
	return order.ID, nil
}

type captureOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// CaptureOrder captures an approved order. A non-COMPLETED status is returned
// to the caller, not treated as a transport error.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var captured captureOrderResponse
	if errDo := c.do(req, &captured); errDo != nil {
		return nil, errDo
	}

	capture := &Capture{
		OrderID:      captured.ID,
		Status:       captured.Status,
		PayerContact: captured.Payer.EmailAddress,
	}
	for _, unit := range captured.PurchaseUnits {
		for _, pay := range unit.Payments.Captures {
			amount, errParse := strconv.ParseFloat(pay.Amount.Value, 64)
			if errParse != nil {
				continue
			}
			capture.Amount += amount
			capture.Currency = pay.Amount.CurrencyCode
		}
	}
	return capture, nil
}

// do executes the request and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("paypal: close response body error: %v", errClose)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%w: status=%d body=%s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(out); errDecode != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGateway, errDecode)
	}
	return nil
}

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrPayment wraps every failure talking to the payment provider.
var ErrPayment = errors.New("payment error")

// Order is a created checkout session the user must approve.
type Order struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
}

// Verification is the outcome of checking a completed checkout session.
type Verification struct {
	Verified bool   `json:"verified"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Checkout defines the interface to the payment provider
type Checkout interface {
	// CreateOrder creates a checkout session for the plan and returns the
	// approval URL the user is redirected to
	CreateOrder(ctx context.Context, plan, successURL, cancelURL string) (*Order, error)

	// VerifyOrder checks whether a previously created session completed
	VerifyOrder(ctx context.Context, orderID string) (*Verification, error)
}

var environments = map[string]string{
	"sandbox": "https://api-m.sandbox.paypal.com",
	"live":    "https://api-m.paypal.com",
}

// PayPal implements the Checkout interface against the PayPal REST API
type PayPal struct {
	baseURL      string
	clientID     string
	clientSecret string
	brandName    string
	client       *http.Client
}

// NewPayPal creates a PayPal client for the given environment ("sandbox" or
// "live"). Missing credentials are reported on first use, not here, so the
// server can start without a payment configuration.
func NewPayPal(clientID, clientSecret, environment string) (*PayPal, error) {
	baseURL, ok := environments[environment]
	if !ok {
		return nil, fmt.Errorf("%w: unknown environment %q", ErrPayment, environment)
	}
	return newPayPal(clientID, clientSecret, baseURL), nil
}

// NewPayPalWithBaseURL creates a client against an arbitrary endpoint, for testing
func NewPayPalWithBaseURL(clientID, clientSecret, baseURL string) *PayPal {
	return newPayPal(clientID, clientSecret, baseURL)
}

func newPayPal(clientID, clientSecret, baseURL string) *PayPal {
	return &PayPal{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		brandName:    "BOM2Pic",
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// accessToken fetches a client-credentials token for API requests
func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return "", fmt.Errorf("%w: credentials not configured", ErrPayment)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		p.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: connecting to provider: %v", ErrPayment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: auth failed (status %d): %s", ErrPayment, resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	return token.AccessToken, nil
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      orderAmount `json:"amount"`
	Description string      `json:"description"`
}

type applicationContext struct {
	BrandName          string `json:"brand_name"`
	LandingPage        string `json:"landing_page"`
	ShippingPreference string `json:"shipping_preference"`
	UserAction         string `json:"user_action"`
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
}

type orderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Links         []orderLink `json:"links"`
	PurchaseUnits []struct {
		Amount orderAmount `json:"amount"`
	} `json:"purchase_units"`
}

// CreateOrder creates a checkout order for the plan and returns the approval URL
func (p *PayPal) CreateOrder(ctx context.Context, plan, successURL, cancelURL string) (*Order, error) {
	info, ok := plans[plan]
	if !ok {
		return nil, fmt.Errorf("%w: invalid plan %q", ErrPayment, plan)
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      orderAmount{CurrencyCode: "USD", Value: strconv.Itoa(info.Price)},
			Description: info.Description,
		}},
		ApplicationContext: applicationContext{
			BrandName:          p.brandName,
			LandingPage:        "NO_PREFERENCE",
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "PAY_NOW",
			ReturnURL:          successURL,
			CancelURL:          cancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to provider: %v", ErrPayment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: order creation failed (status %d): %s", ErrPayment, resp.StatusCode, string(respBody))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding order response: %w", err)
	}

	for _, link := range order.Links {
		if link.Rel == "approve" {
			return &Order{
				CheckoutURL: link.Href,
				SessionID:   order.ID,
				Status:      order.Status,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: order created but no approval URL found", ErrPayment)
}

// VerifyOrder checks whether the order completed
func (p *PayPal) VerifyOrder(ctx context.Context, orderID string) (*Verification, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v2/checkout/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating verify request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to provider: %v", ErrPayment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: verification failed (status %d): %s", ErrPayment, resp.StatusCode, string(respBody))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding verify response: %w", err)
	}

	verification := &Verification{
		Verified: order.Status == "COMPLETED",
		OrderID:  order.ID,
		Status:   order.Status,
	}
	if len(order.PurchaseUnits) > 0 {
		verification.Amount = order.PurchaseUnits[0].Amount.Value
		verification.Currency = order.PurchaseUnits[0].Amount.CurrencyCode
	}
	return verification, nil
}

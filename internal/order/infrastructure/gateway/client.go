// Package gateway wraps the external payment provider's HTTP API as a thin
// capability. The provider is an opaque boundary: every transport or protocol
// failure surfaces as the transient ErrGatewayUnavailable and mutates nothing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	donationdomain "github.com/zawadicraft/storefront/internal/donation/domain"
	"github.com/zawadicraft/storefront/internal/order/application"
	"github.com/zawadicraft/storefront/internal/order/domain"
)

type Client struct {
	log         *slog.Logger
	httpc       *http.Client
	baseURL     string
	token       string
	callbackURL string
	ipnID       string
	currency    string
}

type Config struct {
	BaseURL     string
	Token       string
	CallbackURL string
	IPNID       string
	Currency    string
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	return &Client{
		log:         log,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		callbackURL: cfg.CallbackURL,
		ipnID:       cfg.IPNID,
		currency:    cfg.Currency,
	}
}

type submitOrderRequest struct {
	ID             string  `json:"id"`
	Currency       string  `json:"currency"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	CallbackURL    string  `json:"callback_url"`
	NotificationID string  `json:"notification_id"`
}

type submitOrderResponse struct {
	OrderTrackingID string `json:"order_tracking_id"`
	RedirectURL     string `json:"redirect_url"`
	Status          string `json:"status"`
}

func (c *Client) SubmitOrder(ctx context.Context, o domain.Order) (string, error) {
	body, err := json.Marshal(submitOrderRequest{
		ID:             o.Reference,
		Currency:       c.currency,
		Amount:         float64(o.TotalCents) / 100,
		Description:    "Order " + o.Reference,
		CallbackURL:    c.callbackURL,
		NotificationID: c.ipnID,
	})
	if err != nil {
		return "", err
	}

	var resp submitOrderResponse
	if err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", body, &resp); err != nil {
		return "", err
	}
	if resp.RedirectURL == "" {
		return "", fmt.Errorf("submit order %s: empty redirect url: %w", o.Reference, domain.ErrGatewayUnavailable)
	}
	return resp.RedirectURL, nil
}

func (c *Client) SubmitDonation(ctx context.Context, d donationdomain.Donation) (string, error) {
	body, err := json.Marshal(submitOrderRequest{
		ID:             d.Reference,
		Currency:       c.currency,
		Amount:         float64(d.AmountCents) / 100,
		Description:    "Donation " + d.Reference,
		CallbackURL:    c.callbackURL,
		NotificationID: c.ipnID,
	})
	if err != nil {
		return "", err
	}

	var resp submitOrderResponse
	if err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", body, &resp); err != nil {
		return "", err
	}
	if resp.RedirectURL == "" {
		return "", fmt.Errorf("submit donation %s: empty redirect url: %w", d.Reference, domain.ErrGatewayUnavailable)
	}
	return resp.RedirectURL, nil
}

type transactionStatusResponse struct {
	PaymentStatusDescription string  `json:"payment_status_description"`
	ConfirmationCode         string  `json:"confirmation_code"`
	PaymentMethod            string  `json:"payment_method"`
	Amount                   float64 `json:"amount"`
}

func (c *Client) GetTransactionStatus(ctx context.Context, trackingID string) (application.TransactionStatus, error) {
	u := c.baseURL + "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return application.TransactionStatus{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return application.TransactionStatus{}, fmt.Errorf("get transaction status: %w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return application.TransactionStatus{}, fmt.Errorf("get transaction status: http %d: %w", httpResp.StatusCode, domain.ErrGatewayUnavailable)
	}

	var resp transactionStatusResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return application.TransactionStatus{}, fmt.Errorf("get transaction status: decode: %w", domain.ErrGatewayUnavailable)
	}
	return application.TransactionStatus{
		StatusDescription: resp.PaymentStatusDescription,
		ConfirmationCode:  resp.ConfirmationCode,
		PaymentMethod:     resp.PaymentMethod,
		AmountCents:       int64(math.Round(resp.Amount * 100)),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway post %s: %w: %v", path, domain.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway post %s: http %d: %w", path, httpResp.StatusCode, domain.ErrGatewayUnavailable)
	}
	return json.NewDecoder(httpResp.Body).Decode(out)
}

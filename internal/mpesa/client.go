package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"attachke/internal/common"
)

const (
	timestampLayout = "20060102150405"
	countryPrefix   = "254"
)

// Client speaks the daraja STK push protocol: one push-payment call and one
// synchronous status query. It holds no transaction state of its own; the
// reconciliation service owns persistence.
type Client struct {
	shortCode   string
	passkey     string
	callbackURL string
	baseURL     string
	tokens      *TokenCache
	httpClient  *http.Client
	now         func() time.Time
}

type ClientConfig struct {
	BaseURL     string
	ShortCode   string
	Passkey     string
	CallbackURL string
}

func NewClient(cfg ClientConfig, tokens *TokenCache, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		shortCode:   cfg.ShortCode,
		passkey:     cfg.Passkey,
		callbackURL: cfg.CallbackURL,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokens:      tokens,
		httpClient:  httpClient,
		now:         time.Now,
	}
}

// PushResult is the provider's answer to a push request. TransactionID is the
// checkout request id that the eventual callback will carry.
type PushResult struct {
	TransactionID       string
	MerchantRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

type QueryResult struct {
	ResultCode string
	ResultDesc string
	Success    bool
}

type pushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type pushResponse struct {
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

type queryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type queryResponse struct {
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorMessage string `json:"errorMessage"`
}

// NormalizePhone reduces any user-entered Kenyan mobile number to the
// digits-only 254XXXXXXXXX form the provider expects. The normalization is
// lossy: formatting, leading zeros and country-code variants are dropped.
func NormalizePhone(input string) string {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()
	if strings.HasPrefix(phone, countryPrefix) {
		return phone
	}
	if len(phone) > 9 {
		phone = phone[len(phone)-9:]
	}
	return countryPrefix + phone
}

// InitiatePush asks the provider to prompt the payer's device. The amount is
// truncated to whole shillings; fractional fees are floored, never rounded.
func (c *Client) InitiatePush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (*PushResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	timestamp := c.now().Format(timestampLayout)
	phone := NormalizePhone(phoneNumber)
	if description == "" {
		description = "Application Fee Payment"
	}

	payload := pushRequest{
		BusinessShortCode: c.shortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(amount),
		PartyA:            phone,
		PartyB:            c.shortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamPayment, "failed to encode push request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamPayment, "failed to build push request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamPayment, "failed to reach payment provider", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamPayment, "failed to read push response", err)
	}

	var parsed pushResponse
	// Provider error bodies still carry a useful errorMessage, so decode
	// before checking the status.
	_ = json.Unmarshal(respBody, &parsed)
	if resp.StatusCode != http.StatusOK {
		message := parsed.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("payment provider returned %d", resp.StatusCode)
		}
		return nil, common.NewError(common.CodeUpstreamPayment, message, nil)
	}
	if parsed.ResponseCode != "0" {
		message := parsed.ResponseDescription
		if message == "" {
			message = "payment request rejected"
		}
		return nil, common.NewError(common.CodeUpstreamPayment, message, nil)
	}

	return &PushResult{
		TransactionID:       parsed.CheckoutRequestID,
		MerchantRequestID:   parsed.MerchantRequestID,
		ResponseCode:        parsed.ResponseCode,
		ResponseDescription: parsed.ResponseDescription,
		CustomerMessage:     parsed.CustomerMessage,
	}, nil
}

// QueryStatus asks the provider for the outcome of an earlier push. Used as
// the fallback path when the asynchronous callback is delayed or lost.
func (c *Client) QueryStatus(ctx context.Context, transactionID string) (*QueryResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	timestamp := c.now().Format(timestampLayout)

	payload := queryRequest{
		BusinessShortCode: c.shortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: transactionID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamQuery, "failed to encode query request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mpesa/stkpushquery/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamQuery, "failed to build query request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamQuery, "failed to reach payment provider", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewError(common.CodeUpstreamQuery, "failed to read query response", err)
	}

	var parsed queryResponse
	_ = json.Unmarshal(respBody, &parsed)
	if resp.StatusCode != http.StatusOK {
		message := parsed.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("payment provider returned %d", resp.StatusCode)
		}
		return nil, common.NewError(common.CodeUpstreamQuery, message, nil)
	}

	return &QueryResult{
		ResultCode: parsed.ResultCode,
		ResultDesc: parsed.ResultDesc,
		Success:    parsed.ResultCode == "0",
	}, nil
}

// password derives the provider-required request credential: the short code,
// passkey and timestamp concatenated and base64 encoded.
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))
}

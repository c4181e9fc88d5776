package mpesa

import "encoding/json"

// CallbackEnvelope is the nested payload the provider POSTs to the callback
// URL after the payer resolves (or abandons) the device prompt.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem values are heterogeneous on the wire: receipt numbers arrive as
// strings, amounts as numbers.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ReceiptNumber extracts the provider proof-of-payment id from the metadata,
// or "" when absent.
func (c StkCallback) ReceiptNumber() string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			var value string
			if err := json.Unmarshal(item.Value, &value); err == nil {
				return value
			}
		}
	}
	return ""
}

// Amount extracts the confirmed amount from the metadata.
func (c StkCallback) Amount() (float64, bool) {
	if c.CallbackMetadata == nil {
		return 0, false
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name == "Amount" {
			var value float64
			if err := json.Unmarshal(item.Value, &value); err == nil {
				return value, true
			}
		}
	}
	return 0, false
}

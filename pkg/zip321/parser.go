// Package zip321 implements the ZIP 321 payment request URI format.
//
// A payment URI carries one or more recipients, each with an address and
// optional amount, memo, label, and message:
//
//	zcash:<address>?amount=<zec>&memo=<memo>
//	zcash:?address.0=<addr0>&amount.0=<zec0>&address.1=<addr1>&amount.1=<zec1>
//
// See: https://zips.z.cash/zip-0321
package zip321

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PaymentRequest is a parsed ZIP 321 payment request.
type PaymentRequest struct {
	Payments []Payment
}

// Payment is a single recipient within a request. Amount is in decimal
// ZEC; nil means the payer chooses the amount.
type Payment struct {
	Address string
	Amount  *float64
	Memo    *string
	Label   *string
	Message *string
}

// Parse parses a ZIP 321 payment request URI. The "zcash:" scheme prefix
// is optional. Both the single-recipient form and the indexed
// multi-recipient form are accepted.
func Parse(uri string) (*PaymentRequest, error) {
	uri = strings.TrimPrefix(uri, "zcash:")

	var baseAddress, query string
	parts := strings.SplitN(uri, "?", 2)
	if len(parts) == 2 {
		baseAddress = parts[0]
		query = parts[1]
	} else if strings.Contains(parts[0], "=") {
		query = parts[0]
	} else {
		baseAddress = parts[0]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	var payments []Payment
	if hasIndexedParams(params) {
		payments, err = parseIndexedPayments(params)
		if err != nil {
			return nil, err
		}
	} else {
		payment, err := parseSinglePayment(baseAddress, params)
		if err != nil {
			return nil, err
		}
		payments = []Payment{payment}
	}

	if len(payments) == 0 || payments[0].Address == "" {
		return nil, fmt.Errorf("no payments found in URI")
	}
	return &PaymentRequest{Payments: payments}, nil
}

func parseSinglePayment(address string, params url.Values) (Payment, error) {
	payment := Payment{Address: address}

	if addrParam := params.Get("address"); addrParam != "" {
		payment.Address = addrParam
	}
	if amountStr := params.Get("amount"); amountStr != "" {
		amount, err := parseAmount(amountStr)
		if err != nil {
			return payment, fmt.Errorf("invalid amount: %w", err)
		}
		payment.Amount = &amount
	}
	if memo := params.Get("memo"); memo != "" {
		payment.Memo = &memo
	}
	if label := params.Get("label"); label != "" {
		payment.Label = &label
	}
	if message := params.Get("message"); message != "" {
		payment.Message = &message
	}
	return payment, nil
}

// parseIndexedPayments handles the address.N / amount.N form. Indices run
// 0-9999 and index 0 may be written without a suffix.
func parseIndexedPayments(params url.Values) ([]Payment, error) {
	indices := make(map[int]bool)
	for key := range params {
		if idx := extractIndex(key); idx >= 0 {
			indices[idx] = true
		}
	}

	payments := make(map[int]Payment, len(indices))
	for idx := range indices {
		payment := Payment{}

		address := getIndexedParam(params, "address", idx)
		if address == "" {
			return nil, fmt.Errorf("payment %d missing address", idx)
		}
		payment.Address = address

		if amountStr := getIndexedParam(params, "amount", idx); amountStr != "" {
			amount, err := parseAmount(amountStr)
			if err != nil {
				return nil, fmt.Errorf("payment %d invalid amount: %w", idx, err)
			}
			payment.Amount = &amount
		}
		if memo := getIndexedParam(params, "memo", idx); memo != "" {
			payment.Memo = &memo
		}
		if label := getIndexedParam(params, "label", idx); label != "" {
			payment.Label = &label
		}
		if message := getIndexedParam(params, "message", idx); message != "" {
			payment.Message = &message
		}

		payments[idx] = payment
	}

	result := make([]Payment, 0, len(payments))
	for i := 0; i < 10000; i++ {
		if payment, exists := payments[i]; exists {
			result = append(result, payment)
		}
	}
	return result, nil
}

func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// extractIndex returns the numeric suffix of "name.N" parameters, or -1.
func extractIndex(paramName string) int {
	parts := strings.Split(paramName, ".")
	if len(parts) != 2 {
		return -1
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 || idx > 9999 {
		return -1
	}
	return idx
}

func getIndexedParam(params url.Values, name string, index int) string {
	if index == 0 {
		if val := params.Get(name); val != "" {
			return val
		}
	}
	return params.Get(fmt.Sprintf("%s.%d", name, index))
}

func parseAmount(amountStr string) (float64, error) {
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid number: %w", err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount cannot be negative")
	}
	return amount, nil
}

// Encode renders the request back into a URI, the inverse of Parse.
func (req *PaymentRequest) Encode() string {
	if len(req.Payments) == 0 {
		return "zcash:"
	}
	if len(req.Payments) == 1 {
		return encodeSinglePayment(req.Payments[0])
	}
	return encodeMultiplePayments(req.Payments)
}

func encodeSinglePayment(p Payment) string {
	uri := "zcash:" + p.Address

	params := url.Values{}
	if p.Amount != nil {
		params.Add("amount", formatAmount(*p.Amount))
	}
	if p.Memo != nil {
		params.Add("memo", *p.Memo)
	}
	if p.Label != nil {
		params.Add("label", *p.Label)
	}
	if p.Message != nil {
		params.Add("message", *p.Message)
	}

	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	return uri
}

func encodeMultiplePayments(payments []Payment) string {
	params := url.Values{}
	for i, p := range payments {
		idx := fmt.Sprintf(".%d", i)
		params.Add("address"+idx, p.Address)
		if p.Amount != nil {
			params.Add("amount"+idx, formatAmount(*p.Amount))
		}
		if p.Memo != nil {
			params.Add("memo"+idx, *p.Memo)
		}
		if p.Label != nil {
			params.Add("label"+idx, *p.Label)
		}
		if p.Message != nil {
			params.Add("message"+idx, *p.Message)
		}
	}
	return "zcash:?" + params.Encode()
}

// formatAmount renders a ZEC amount with up to 8 decimals and no
// trailing zeros.
func formatAmount(amount float64) string {
	str := strconv.FormatFloat(amount, 'f', 8, 64)
	str = strings.TrimRight(str, "0")
	return strings.TrimRight(str, ".")
}

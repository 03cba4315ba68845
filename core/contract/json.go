package contract

import (
	stdjson "encoding/json"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.dedis.ch/synergy/core/txn"
)

// Numbers are kept as json.Number so that large balances are never rounded
// through a float.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Document is a structured payload decoded from JSON. Queries and their
// responses use the same representation.
type Document map[string]interface{}

// Query is the input and the output of a query handler.
type Query = Document

// ParseAsJson tries to decode the payload of the transaction as a JSON object.
// It returns true when it succeeds, and only then the output is populated.
func ParseAsJson(tx txn.Transaction, output *Document) bool {
	var doc Document

	err := json.Unmarshal(tx.GetPayload(), &doc)
	if err != nil || doc == nil {
		return false
	}

	*output = doc

	return true
}

// String returns the string value of the key if it exists.
func (d Document) String(key string) (string, bool) {
	value, ok := d[key].(string)
	return value, ok
}

// Uint64 returns the value of the key if it is a non-negative integer.
func (d Document) Uint64(key string) (uint64, bool) {
	switch value := d[key].(type) {
	case stdjson.Number:
		n, err := strconv.ParseUint(value.String(), 10, 64)
		return n, err == nil
	case uint64:
		return value, true
	default:
		return 0, false
	}
}

// Int64 returns the value of the key if it is an integer.
func (d Document) Int64(key string) (int64, bool) {
	switch value := d[key].(type) {
	case stdjson.Number:
		n, err := value.Int64()
		return n, err == nil
	case int64:
		return value, true
	case int:
		return int64(value), true
	default:
		return 0, false
	}
}

// Marshal returns the JSON encoding of the document.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

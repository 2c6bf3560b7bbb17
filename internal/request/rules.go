package request

import (
	"net/http"
	"slices"
)

// Kind names one REST call.
type Kind string

const (
	KindMarkets    Kind = "getmarkets"
	KindBoard      Kind = "getboard"
	KindTicker     Kind = "getticker"
	KindExecutions Kind = "getexecutions"
	KindBoardState Kind = "getboardstate"
	KindHealth     Kind = "gethealth"
	KindChats      Kind = "getchats"

	KindBalance              Kind = "me/getbalance"
	KindCollateral           Kind = "me/getcollateral"
	KindChildOrders          Kind = "me/getchildorders"
	KindMyExecutions         Kind = "me/getexecutions"
	KindPositions            Kind = "me/getpositions"
	KindTradingCommission    Kind = "me/gettradingcommission"
	KindSendChildOrder       Kind = "me/sendchildorder"
	KindCancelChildOrder     Kind = "me/cancelchildorder"
	KindCancelAllChildOrders Kind = "me/cancelallchildorders"
)

type fieldType int

const (
	typeString fieldType = iota
	typeNumber
	typeEnum
	typeDateTime
)

type field struct {
	typ  fieldType
	enum []string
}

var (
	childOrderTypes  = []string{"LIMIT", "MARKET"}
	sides            = []string{"BUY", "SELL"}
	childOrderStates = []string{"ACTIVE", "COMPLETED", "CANCELED", "EXPIRED", "REJECTED"}
	timesInForce     = []string{"GTC", "IOC", "FOK"}
)

// Capabilities shared by several kinds.
var (
	productCoded = map[string]field{
		"product_code": {typ: typeString},
	}
	paged = map[string]field{
		"count":  {typ: typeNumber},
		"before": {typ: typeNumber},
		"after":  {typ: typeNumber},
	}
)

// rule describes one kind: where it goes, which fields it accepts and which
// combinations are required.
type rule struct {
	method   string
	path     string
	private  bool
	defaults map[string]any
	fields   map[string]field
	required []string
	// Exactly one group must be fully present when non-empty.
	oneOf [][]string
	// Setting a key removes the listed keys.
	exclusive map[string][]string
	// Extra required fields that depend on other values.
	conditional func(params map[string]any) []string
}

func compose(parts ...map[string]field) map[string]field {
	out := make(map[string]field)
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

func btcJPY() map[string]any { return map[string]any{"product_code": "BTC_JPY"} }

var rules = map[Kind]rule{
	KindMarkets: {method: http.MethodGet, path: "/v1/getmarkets"},
	KindBoard: {
		method: http.MethodGet, path: "/v1/getboard",
		fields: productCoded, required: []string{"product_code"},
	},
	KindTicker: {
		method: http.MethodGet, path: "/v1/getticker",
		fields: productCoded, required: []string{"product_code"},
	},
	KindExecutions: {
		method: http.MethodGet, path: "/v1/getexecutions",
		fields: compose(productCoded, paged), required: []string{"product_code"},
	},
	KindBoardState: {
		method: http.MethodGet, path: "/v1/getboardstate",
		fields: productCoded, required: []string{"product_code"},
	},
	KindHealth: {
		method: http.MethodGet, path: "/v1/gethealth",
		fields: productCoded, required: []string{"product_code"},
	},
	KindChats: {
		method: http.MethodGet, path: "/v1/getchats",
		fields: map[string]field{"from_date": {typ: typeDateTime}},
	},

	KindBalance:    {method: http.MethodGet, path: "/v1/me/getbalance", private: true},
	KindCollateral: {method: http.MethodGet, path: "/v1/me/getcollateral", private: true},
	KindChildOrders: {
		method: http.MethodGet, path: "/v1/me/getchildorders", private: true,
		fields: compose(productCoded, paged, map[string]field{
			"child_order_state": {typ: typeEnum, enum: childOrderStates},
			"parent_order_id":   {typ: typeString},
		}),
		required: []string{"product_code"},
	},
	KindMyExecutions: {
		method: http.MethodGet, path: "/v1/me/getexecutions", private: true,
		fields: compose(productCoded, paged, map[string]field{
			"child_order_id":            {typ: typeString},
			"child_order_acceptance_id": {typ: typeString},
		}),
		required: []string{"product_code"},
	},
	KindPositions: {
		method: http.MethodGet, path: "/v1/me/getpositions", private: true,
		defaults: map[string]any{"product_code": "FX_BTC_JPY"},
		fields:   compose(productCoded, paged), required: []string{"product_code"},
	},
	KindTradingCommission: {
		method: http.MethodGet, path: "/v1/me/gettradingcommission", private: true,
		fields: productCoded, required: []string{"product_code"},
	},
	KindSendChildOrder: {
		method: http.MethodPost, path: "/v1/me/sendchildorder", private: true,
		defaults: map[string]any{"product_code": "BTC_JPY", "child_order_type": "MARKET"},
		fields: compose(productCoded, map[string]field{
			"child_order_type": {typ: typeEnum, enum: childOrderTypes},
			"side":             {typ: typeEnum, enum: sides},
			"price":            {typ: typeNumber},
			"size":             {typ: typeNumber},
			"minute_to_expire": {typ: typeNumber},
			"time_in_force":    {typ: typeEnum, enum: timesInForce},
		}),
		required: []string{"product_code", "child_order_type", "side", "size"},
		conditional: func(p map[string]any) []string {
			if p["child_order_type"] == "LIMIT" {
				return []string{"price"}
			}
			return nil
		},
	},
	KindCancelChildOrder: {
		method: http.MethodPost, path: "/v1/me/cancelchildorder", private: true,
		fields: compose(productCoded, map[string]field{
			"child_order_id":            {typ: typeString},
			"child_order_acceptance_id": {typ: typeString},
		}),
		required: []string{"product_code"},
		oneOf:    [][]string{{"child_order_id"}, {"child_order_acceptance_id"}},
		exclusive: map[string][]string{
			"child_order_id":            {"child_order_acceptance_id"},
			"child_order_acceptance_id": {"child_order_id"},
		},
	},
	KindCancelAllChildOrders: {
		method: http.MethodPost, path: "/v1/me/cancelallchildorders", private: true,
		fields: productCoded, required: []string{"product_code"},
	},
}

// Kinds lists every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(rules))
	for k := range rules {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

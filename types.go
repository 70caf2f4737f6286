package strata

// ConsistencyLevel controls how many replicas must acknowledge a write.
type ConsistencyLevel string

// Consistency level constants.
const (
	ConsistencyOne    ConsistencyLevel = "ONE"
	ConsistencyQuorum ConsistencyLevel = "QUORUM"
	ConsistencyAll    ConsistencyLevel = "ALL"
)

// requestOptions carries per-request scoping shared by object, search and
// batch operations.
type requestOptions struct {
	tenant      string
	consistency ConsistencyLevel
}

// RequestOption scopes a single request.
type RequestOption func(*requestOptions)

// WithTenant scopes the request to a tenant of a multi-tenant collection.
func WithTenant(name string) RequestOption {
	return func(o *requestOptions) { o.tenant = name }
}

// WithRequestConsistency overrides the client's default consistency level
// for one request.
func WithRequestConsistency(level ConsistencyLevel) RequestOption {
	return func(o *requestOptions) { o.consistency = level }
}

func applyRequestOptions(defaults requestOptions, opts []RequestOption) requestOptions {
	o := defaults
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// FilterExpression is a set of must/should/must_not filter conditions.
type FilterExpression struct {
	Must    []FilterCondition `json:"must,omitempty"`
	Should  []FilterCondition `json:"should,omitempty"`
	MustNot []FilterCondition `json:"must_not,omitempty"`
}

// FilterCondition is a single filter clause over one property.
type FilterCondition struct {
	Property string       `json:"property"`
	Match    string       `json:"match,omitempty"` // non-empty for exact match
	Range    *RangeFilter `json:"range,omitempty"` // non-nil for numeric range
}

// RangeFilter defines numeric range boundaries.
type RangeFilter struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// Where creates an exact-match filter condition.
func Where(property, match string) FilterCondition {
	return FilterCondition{Property: property, Match: match}
}

// WhereRange creates a numeric range filter condition.
func WhereRange(property string, r RangeFilter) FilterCondition {
	return FilterCondition{Property: property, Range: &r}
}

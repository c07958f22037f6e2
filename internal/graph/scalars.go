package graph

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// DateLayout is the wire format of the Date scalar.
const DateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD. Parsed values are UTC midnight.
var Date = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Date",
	Description: "Calendar date in YYYY-MM-DD form.",
	Serialize:   serializeDate,
	ParseValue:  parseDate,
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if v, ok := valueAST.(*ast.StringValue); ok {
			return parseDate(v.Value)
		}
		return nil
	},
})

func serializeDate(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(DateLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(DateLayout)
	case string:
		return v
	}
	return nil
}

// parseDate returns nil for anything that is not a valid date string,
// which graphql-go reports as an input coercion error.
func parseDate(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return t
}

// Long is a signed 64-bit integer serialized as a JSON number. graphql-go's
// Int is 32-bit, and trading volumes routinely exceed it.
var Long = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Long",
	Description: "Signed 64-bit integer.",
	Serialize:   coerceLong,
	ParseValue:  coerceLong,
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if v, ok := valueAST.(*ast.IntValue); ok {
			if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
				return n
			}
		}
		return nil
	},
})

// coerceLong accepts integral numbers of any width, including the float64
// that encoding/json produces for variables. Anything else is nil.
func coerceLong(value interface{}) interface{} {
	switch v := value.(type) {
	case int64:
		return v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return nil
		}
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return nil
}

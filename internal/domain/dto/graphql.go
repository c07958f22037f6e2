package dto

// GraphQLRequest is the body accepted by POST /graphql.
type GraphQLRequest struct {
	Query         string         `json:"query" binding:"required" example:"{ getTicker(symbol: \"AAPL\") { symbol simpleMovingAverage(period: 5) } }"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

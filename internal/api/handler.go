package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"

	"github.com/guttosm/tickerql/internal/domain/dto"
	"github.com/guttosm/tickerql/internal/graph"
	"github.com/guttosm/tickerql/internal/middleware"
)

// BannerMessage is returned by GET /.
const BannerMessage = "Financial Data Microservice Running"

// Handler serves the GraphQL endpoint.
//
// Responsibilities:
//   - Decode the JSON request body into dto.GraphQLRequest.
//   - Execute the operation against the schema with the request in context.
//   - Return the GraphQL result (data and errors) with HTTP 200.
type Handler struct {
	schema graphql.Schema
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - schema (graphql.Schema): schema built by graph.NewSchema.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(schema graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

// GraphQL handles POST /graphql requests.
//
// Responses:
//   - 200 OK: GraphQL result. Operation failures are reported in "errors" with extensions.code.
//   - 400 Bad Request: body is not a JSON object with a "query" string.
//   - 429 Too Many Requests: client exceeded its quota (set by the rate limiter).
//
// GraphQL godoc
// @Summary      Execute a GraphQL operation
// @Description  Runs getTicker, getAllTickers, login or addMarketData. addMarketData needs "Authorization: Bearer <token>" from login.
// @Tags         graphql
// @Accept       json
// @Produce      json
// @Param        request  body      dto.GraphQLRequest  true  "GraphQL request"
// @Success      200      {object}  map[string]interface{}  "GraphQL result"
// @Failure      400      {object}  dto.ErrorResponse       "Bad Request"
// @Failure      429      {object}  dto.ErrorResponse       "Too Many Requests"
// @Router       /graphql [post]
func (h *Handler) GraphQL(c *gin.Context) {
	var req dto.GraphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx := graph.WithRequest(c.Request.Context(), c.Request)
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	c.JSON(http.StatusOK, result)
}

// Banner handles GET /.
//
// Banner godoc
// @Summary      Service banner
// @Description  Confirms the service is running
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": BannerMessage})
}

package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/guttosm/tickerql/internal/analytics"
	"github.com/guttosm/tickerql/internal/auth"
	"github.com/guttosm/tickerql/internal/service"
)

// NewSchema builds the executable schema.
//
// Parameters:
//   - svc (service.MarketService): backs every query and mutation.
//   - gate (auth.Gate): guards addMarketData.
//
// Returns:
//   - graphql.Schema: schema ready for graphql.Do.
//   - error: if the type definitions are inconsistent.
func NewSchema(svc service.MarketService, gate auth.Gate) (graphql.Schema, error) {
	r := &resolvers{svc: svc}

	priceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Price",
		Fields: graphql.Fields{
			"date":       &graphql.Field{Type: graphql.NewNonNull(Date), Resolve: priceDate},
			"closePrice": &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: priceClose},
			"volume":     &graphql.Field{Type: graphql.NewNonNull(Long), Resolve: priceVolume},
		},
	})

	tickerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ticker",
		Fields: graphql.Fields{
			"symbol": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: tickerSymbol},
			"name":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: tickerName},
			"sector": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: tickerSector},
			"prices": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(priceType))),
				Resolve: tickerPrices,
			},
			"simpleMovingAverage": &graphql.Field{
				Type:        graphql.Float,
				Description: "Mean close price of the most recent `period` prices, null if there are fewer.",
				Args: graphql.FieldConfigArgument{
					"period": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: analytics.DefaultSMAPeriod},
				},
				Resolve: r.simpleMovingAverage,
			},
		},
	})

	authTokenType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthToken",
		Fields: graphql.Fields{
			"accessToken": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: tokenAccess},
			"tokenType":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: tokenType},
		},
	})

	priceInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PriceInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"date":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(Date)},
			"closePrice": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"volume":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(Long)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getTicker": &graphql.Field{
				Type: tickerType,
				Args: graphql.FieldConfigArgument{
					"symbol": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.getTicker,
			},
			"getAllTickers": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(tickerType))),
				Resolve: r.getAllTickers,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authTokenType),
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.login,
			},
			"addMarketData": &graphql.Field{
				Type: graphql.NewNonNull(tickerType),
				Args: graphql.FieldConfigArgument{
					"symbol": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"name":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"sector": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"prices": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(priceInputType))),
					},
				},
				Resolve: protect(gate, r.addMarketData),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

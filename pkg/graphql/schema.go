package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/mnohosten/clara-db/pkg/database"
	"github.com/mnohosten/clara-db/pkg/document"
)

func queryArg(p graphql.ResolveParams, name string) *document.Document {
	if raw, ok := p.Args[name].(map[string]interface{}); ok {
		return document.FromMap(raw)
	}
	return document.New()
}

func intArg(p graphql.ResolveParams, name string) int {
	if n, ok := p.Args[name].(int); ok {
		return n
	}
	return 0
}

// Schema builds the GraphQL schema over the database catalog
func Schema(db *database.Database) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"find": &graphql.Field{
				Type:        graphql.NewList(JSONScalar),
				Description: "Find documents matching a filter",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: JSONScalar},
					"skip":       &graphql.ArgumentConfig{Type: graphql.Int},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					docs, err := coll.HandleQuery(queryArg(p, "query"), intArg(p, "skip"), intArg(p, "limit"), nil)
					if err != nil {
						return nil, err
					}
					out := make([]interface{}, 0, len(docs))
					for _, doc := range docs {
						out = append(out, doc.ToMap())
					}
					return out, nil
				},
			},
			"count": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Count documents matching a filter",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: JSONScalar},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					return coll.Count(queryArg(p, "query"))
				},
			},
			"distinct": &graphql.Field{
				Type:        graphql.NewList(JSONScalar),
				Description: "Distinct values under a key, in sorted order",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"key":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: JSONScalar},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					spec := document.New()
					spec.Set("key", p.Args["key"].(string))
					spec.Set("query", queryArg(p, "query"))
					response, err := coll.HandleDistinct(spec)
					if err != nil {
						return nil, err
					}
					values, _ := response.Get("values")
					return document.CloneValue(values), nil
				},
			},
			"collections": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Names of the existing collections",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return db.ListCollections(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"insert": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Insert documents, returning the inserted count",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"documents":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(JSONScalar))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					raw, ok := p.Args["documents"].([]interface{})
					if !ok {
						return nil, fmt.Errorf("documents must be a list of objects")
					}
					docs := make([]*document.Document, 0, len(raw))
					for _, item := range raw {
						m, ok := item.(map[string]interface{})
						if !ok {
							return nil, fmt.Errorf("documents must be a list of objects")
						}
						docs = append(docs, document.FromMap(m))
					}
					return coll.InsertDocuments(docs)
				},
			},
			"update": &graphql.Field{
				Type:        JSONScalar,
				Description: "Update documents matching a filter",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: JSONScalar},
					"update":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(JSONScalar)},
					"multi":      &graphql.ArgumentConfig{Type: graphql.Boolean},
					"upsert":     &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					updateRaw, ok := p.Args["update"].(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("update must be an object")
					}
					multi, _ := p.Args["multi"].(bool)
					upsert, _ := p.Args["upsert"].(bool)
					result, err := coll.UpdateDocuments(queryArg(p, "query"), document.FromMap(updateRaw), multi, upsert)
					if err != nil {
						return nil, err
					}
					return result.ToMap(), nil
				},
			},
			"delete": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Delete documents matching a filter, returning the deleted count",
				Args: graphql.FieldConfigArgument{
					"collection": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: JSONScalar},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coll := db.Collection(p.Args["collection"].(string))
					return coll.DeleteDocuments(queryArg(p, "query"), intArg(p, "limit"))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

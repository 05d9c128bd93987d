package graphql

import (
	"encoding/json"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// JSONScalar is a custom GraphQL scalar type for JSON data
var JSONScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "The `JSON` scalar type represents JSON values as specified by ECMA-404",
	Serialize: func(value interface{}) interface{} {
		return value
	},
	ParseValue: func(value interface{}) interface{} {
		switch v := value.(type) {
		case nil:
			return nil
		case map[string]interface{}, []interface{}:
			return v
		case string:
			var result interface{}
			if err := json.Unmarshal([]byte(v), &result); err != nil {
				return nil
			}
			return result
		default:
			return value
		}
	},
	ParseLiteral: parseLiteralValue,
})

// parseLiteralValue recursively converts AST literals to Go values
func parseLiteralValue(valueAST ast.Value) interface{} {
	switch valueAST := valueAST.(type) {
	case *ast.ObjectValue:
		obj := make(map[string]interface{})
		for _, field := range valueAST.Fields {
			obj[field.Name.Value] = parseLiteralValue(field.Value)
		}
		return obj
	case *ast.ListValue:
		list := make([]interface{}, len(valueAST.Values))
		for i, value := range valueAST.Values {
			list[i] = parseLiteralValue(value)
		}
		return list
	case *ast.StringValue:
		return valueAST.Value
	case *ast.IntValue:
		num, err := strconv.ParseInt(valueAST.Value, 10, 64)
		if err != nil {
			return nil
		}
		return num
	case *ast.FloatValue:
		num, err := strconv.ParseFloat(valueAST.Value, 64)
		if err != nil {
			return nil
		}
		return num
	case *ast.BooleanValue:
		return valueAST.Value
	case *ast.EnumValue:
		return valueAST.Value
	default:
		return nil
	}
}

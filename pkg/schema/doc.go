// Package schema is a small runtime type system for JSON documents.
//
// A Schema maps field names to Types. Validate reports every failure at once
// as an *AggregateError of *ValidationError values, visiting fields in sorted
// order:
//
//	critical := schema.Schema{
//	    "profile":         schema.Map(),
//	    "current_account": schema.Map(),
//	    "jwt_token":       schema.String(),
//	}
//	if err := schema.Validate(critical, doc); err != nil {
//	    fields := schema.Fields(err)
//	    ...
//	}
//
// Schemas round-trip through JSON and YAML as `field: type` maps, where type is
// one of string, int, float, bool, map, any, [T] or T?.
package schema

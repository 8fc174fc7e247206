package loader

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Document attributes are evaluated with no EvalContext: build documents
// carry static strings, and dynamic behavior lives entirely in the
// ${{ ... }} placeholder syntax resolved later (written as $${{ ... }} in
// HCL source, per normal HCL dollar escaping).

func evalValue(expr hcl.Expression) (cty.Value, hcl.Diagnostics) {
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return value, nil
}

func evalString(expr hcl.Expression) (string, hcl.Diagnostics) {
	value, diags := evalValue(expr)
	if diags.HasErrors() {
		return "", diags
	}
	value, err := convert.Convert(value, cty.String)
	if err != nil || value.IsNull() {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid attribute value",
			Detail:   "A string value is required here.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	return value.AsString(), nil
}

func evalStringList(expr hcl.Expression) ([]string, hcl.Diagnostics) {
	value, diags := evalValue(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	if value.IsNull() || !value.CanIterateElements() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid attribute value",
			Detail:   "A list of strings is required here.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	var out []string
	for it := value.ElementIterator(); it.Next(); {
		_, item := it.Element()
		item, err := convert.Convert(item, cty.String)
		if err != nil || item.IsNull() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid attribute value",
				Detail:   "Every element must be a string.",
				Subject:  expr.Range().Ptr(),
			}}
		}
		out = append(out, item.AsString())
	}
	return out, nil
}

// evalStringListValue converts an already evaluated collection value to a
// string slice. expr is only used for diagnostic positions.
func evalStringListValue(value cty.Value, expr hcl.Expression) ([]string, hcl.Diagnostics) {
	var out []string
	for it := value.ElementIterator(); it.Next(); {
		_, item := it.Element()
		item, err := convert.Convert(item, cty.String)
		if err != nil || item.IsNull() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid attribute value",
				Detail:   "Every element must be a string.",
				Subject:  expr.Range().Ptr(),
			}}
		}
		out = append(out, item.AsString())
	}
	return out, nil
}

// evalStringMap returns the map entries with keys in lexical order, which
// keeps downstream behavior deterministic regardless of source layout.
func evalStringMap(expr hcl.Expression) (map[string]string, hcl.Diagnostics) {
	value, diags := evalValue(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	if value.IsNull() || !value.CanIterateElements() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid attribute value",
			Detail:   "A map of strings is required here.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	out := map[string]string{}
	for it := value.ElementIterator(); it.Next(); {
		key, item := it.Element()
		item, err := convert.Convert(item, cty.String)
		if err != nil || item.IsNull() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid attribute value",
				Detail:   "Every value must be a string.",
				Subject:  expr.Range().Ptr(),
			}}
		}
		out[key.AsString()] = item.AsString()
	}
	return out, nil
}

// orderedAttributes returns a body's attributes in source order.
func orderedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Byte < out[j].Range.Start.Byte
	})
	return out
}

// Package contextfile loads a variable context from a JSON, YAML or HCL
// file. The format is picked from the file extension.
package contextfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/grahms/docweaver"
)

// Load reads the file at path into a Context.
func Load(path string, logger *slog.Logger) (docweaver.Context, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ext := strings.ToLower(filepath.Ext(path))
	logger.Debug("Loading context file.", "path", path, "format", ext)

	switch ext {
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read context file %s: %w", path, err)
		}
		return Parse(data)
	case ".hcl":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read context file %s: %w", path, err)
		}
		return ParseHCL(src, path)
	}
	return nil, fmt.Errorf("unsupported context file extension %q", ext)
}

// Parse decodes JSON or YAML data. The top level must be a mapping.
func Parse(data []byte) (docweaver.Context, error) {
	vars := map[string]any{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}
	return docweaver.NewContext(vars)
}

// ParseHCL decodes top level attributes of an HCL body, e.g.
//
//	title  = "Weekly"
//	values = [1, 2, 3]
func ParseHCL(src []byte, filename string) (docweaver.Context, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ctx := make(docweaver.Context, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(&hcl.EvalContext{})
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToValue(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		ctx[name] = v
	}
	return ctx, nil
}

// ctyToValue converts a cty.Value into a docweaver Value.
func ctyToValue(v cty.Value) (docweaver.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]docweaver.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			n, err := ctyToValue(el)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := map[string]docweaver.Value{}
		for it := v.ElementIterator(); it.Next(); {
			k, el := it.Element()
			n, err := ctyToValue(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			out[k.AsString()] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
}

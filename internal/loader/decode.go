package loader

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/platform"
)

// nodeBlockHeaders lists every block type that may appear wherever child
// nodes are allowed: at the document root, inside a matrix, and inside a
// case branch. Keeping one table makes the tree grammar uniform.
var nodeBlockHeaders = []hcl.BlockHeaderSchema{
	{Type: "repo"},
	{Type: "namespace", LabelNames: []string{"name"}},
	{Type: "matrix"},
	{Type: "case"},
	{Type: "link"},
	{Type: "hook"},
	{Type: "package", LabelNames: []string{"name"}},
	{Type: "manager", LabelNames: []string{"name"}},
}

var rootSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "version"}},
	Blocks:     nodeBlockHeaders,
}

var nodeSchema = &hcl.BodySchema{
	Blocks: nodeBlockHeaders,
}

var matrixSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "values", Required: true}},
	Blocks:     nodeBlockHeaders,
}

var caseSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "branch"},
		{Type: "default"},
	},
}

var branchSchema = &hcl.BodySchema{
	Blocks: append([]hcl.BlockHeaderSchema{{Type: "condition"}}, nodeBlockHeaders...),
}

var repoSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path", Required: true},
		{Name: "url", Required: true},
	},
}

var linkSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "source", Required: true},
		{Name: "target", Required: true},
	},
}

var hookSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "command", Required: true},
		{Name: "shell"},
		{Name: "on"},
	},
}

var packageSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "managers"},
		{Name: "aliases"},
	},
}

var managerSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "bootstrap"},
		{Name: "has"},
		{Name: "install"},
		{Name: "uninstall"},
	},
}

// decodeNodes decodes a body's child node blocks in source order. The
// schema-table approach keeps sibling blocks of different types in exactly
// the order they were written, which the resolver's ordering contract
// depends on.
func decodeNodes(content *hcl.BodyContent) ([]build.Node, hcl.Diagnostics) {
	var nodes []build.Node
	var diags hcl.Diagnostics
	for _, block := range content.Blocks {
		node, nodeDiags := decodeNode(block)
		diags = append(diags, nodeDiags...)
		if nodeDiags.HasErrors() {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, diags
}

func decodeNode(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	switch block.Type {
	case "repo":
		return decodeRepo(block)
	case "namespace":
		return decodeNamespace(block)
	case "matrix":
		return decodeMatrix(block)
	case "case":
		return decodeCase(block)
	case "link":
		return decodeLink(block)
	case "hook":
		return decodeHook(block)
	case "package":
		return decodePackage(block)
	case "manager":
		return decodeManager(block)
	}
	// Unreachable: the schema admits only the types above.
	return nil, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unsupported block",
		Detail:   "Block type " + block.Type + " is not a build node.",
		Subject:  block.DefRange.Ptr(),
	}}
}

func decodeRepo(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(repoSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	path, diags := evalString(content.Attributes["path"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	url, diags := evalString(content.Attributes["url"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	return build.Repository{Path: path, URL: url}, nil
}

// decodeNamespace accepts arbitrary attribute names as bindings, kept in
// source order so later bindings may shadow or build on earlier ones.
func decodeNamespace(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	ns := build.Namespace{Name: block.Labels[0]}
	for _, attr := range orderedAttributes(attrs) {
		value, valueDiags := evalString(attr.Expr)
		if valueDiags.HasErrors() {
			return nil, valueDiags
		}
		ns.Values = append(ns.Values, build.Binding{Name: attr.Name, Value: value})
	}
	return ns, nil
}

func decodeMatrix(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(matrixSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	columns, diags := decodeMatrixValues(content.Attributes["values"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	children, diags := decodeNodes(content)
	if diags.HasErrors() {
		return nil, diags
	}
	return build.Matrix{Columns: columns, Children: children}, nil
}

// decodeMatrixValues turns the values attribute (a map of string lists)
// into named columns, in lexical key order for determinism.
func decodeMatrixValues(expr hcl.Expression) ([]build.MatrixColumn, hcl.Diagnostics) {
	value, diags := evalValue(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	if value.IsNull() || !value.CanIterateElements() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid matrix values",
			Detail:   "The values attribute must be a map of string lists.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	var columns []build.MatrixColumn
	for it := value.ElementIterator(); it.Next(); {
		key, items := it.Element()
		column := build.MatrixColumn{Name: key.AsString()}
		if items.IsNull() || !items.CanIterateElements() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid matrix values",
				Detail:   "Column " + column.Name + " must be a list of strings.",
				Subject:  expr.Range().Ptr(),
			}}
		}
		list, listDiags := evalStringListValue(items, expr)
		if listDiags.HasErrors() {
			return nil, listDiags
		}
		column.Items = list
		columns = append(columns, column)
	}
	return columns, nil
}

func decodeCase(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(caseSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	node := build.Case{}
	for _, inner := range content.Blocks {
		if len(node.Branches) > 0 && node.Branches[len(node.Branches)-1].Condition == nil {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Misplaced default branch",
				Detail:   "The default branch must be the final branch of a case block.",
				Subject:  inner.DefRange.Ptr(),
			}}
		}
		switch inner.Type {
		case "branch":
			branch, branchDiags := decodeBranch(inner)
			if branchDiags.HasErrors() {
				return nil, branchDiags
			}
			node.Branches = append(node.Branches, branch)
		case "default":
			content, defaultDiags := inner.Body.Content(nodeSchema)
			if defaultDiags.HasErrors() {
				return nil, defaultDiags
			}
			children, defaultDiags := decodeNodes(content)
			if defaultDiags.HasErrors() {
				return nil, defaultDiags
			}
			node.Branches = append(node.Branches, build.CaseBranch{Children: children})
		}
	}
	return node, nil
}

func decodeBranch(block *hcl.Block) (build.CaseBranch, hcl.Diagnostics) {
	content, diags := block.Body.Content(branchSchema)
	if diags.HasErrors() {
		return build.CaseBranch{}, diags
	}

	branch := build.CaseBranch{Condition: platform.Condition{}}
	var conditions int
	var childBlocks []*hcl.Block
	for _, inner := range content.Blocks {
		if inner.Type != "condition" {
			childBlocks = append(childBlocks, inner)
			continue
		}
		conditions++
		attrs, attrDiags := inner.Body.JustAttributes()
		if attrDiags.HasErrors() {
			return build.CaseBranch{}, attrDiags
		}
		for _, attr := range orderedAttributes(attrs) {
			value, valueDiags := evalString(attr.Expr)
			if valueDiags.HasErrors() {
				return build.CaseBranch{}, valueDiags
			}
			// Unknown field names are kept: the resolver reports them as
			// malformed conditions rather than the loader dropping them.
			branch.Condition[attr.Name] = value
		}
	}
	if conditions != 1 {
		return build.CaseBranch{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid branch",
			Detail:   "A branch block requires exactly one condition block.",
			Subject:  block.DefRange.Ptr(),
		}}
	}

	children, diags := decodeNodes(&hcl.BodyContent{Blocks: childBlocks})
	if diags.HasErrors() {
		return build.CaseBranch{}, diags
	}
	branch.Children = children
	return branch, nil
}

func decodeLink(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(linkSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	source, diags := evalString(content.Attributes["source"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	target, diags := evalString(content.Attributes["target"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	return build.Link{Source: source, Target: target}, nil
}

func decodeHook(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(hookSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	command, diags := evalString(content.Attributes["command"].Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	hook := build.Hook{Command: command, On: []build.Lifecycle{build.LifecycleInstall}}
	if attr, ok := content.Attributes["shell"]; ok {
		shell, shellDiags := evalString(attr.Expr)
		if shellDiags.HasErrors() {
			return nil, shellDiags
		}
		hook.Shell = shell
	}
	if attr, ok := content.Attributes["on"]; ok {
		phases, onDiags := evalStringList(attr.Expr)
		if onDiags.HasErrors() {
			return nil, onDiags
		}
		hook.On = hook.On[:0]
		for _, phase := range phases {
			switch build.Lifecycle(phase) {
			case build.LifecycleInstall, build.LifecycleUninstall:
				hook.On = append(hook.On, build.Lifecycle(phase))
			default:
				return nil, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Invalid hook lifecycle",
					Detail:   "Lifecycle " + phase + " is not one of install, uninstall.",
					Subject:  attr.Expr.Range().Ptr(),
				}}
			}
		}
	}
	return hook, nil
}

func decodePackage(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(packageSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	pkg := build.Package{Name: block.Labels[0]}
	if attr, ok := content.Attributes["managers"]; ok {
		managers, listDiags := evalStringList(attr.Expr)
		if listDiags.HasErrors() {
			return nil, listDiags
		}
		pkg.Managers = managers
	}
	if attr, ok := content.Attributes["aliases"]; ok {
		aliases, mapDiags := evalStringMap(attr.Expr)
		if mapDiags.HasErrors() {
			return nil, mapDiags
		}
		pkg.Aliases = aliases
	}
	return pkg, nil
}

func decodeManager(block *hcl.Block) (build.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(managerSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	mgr := build.Manager{Name: block.Labels[0]}
	fields := map[string]*string{
		"bootstrap": &mgr.Bootstrap,
		"has":       &mgr.Has,
		"install":   &mgr.Install,
		"uninstall": &mgr.Uninstall,
	}
	for name, dest := range fields {
		attr, ok := content.Attributes[name]
		if !ok {
			continue
		}
		value, valueDiags := evalString(attr.Expr)
		if valueDiags.HasErrors() {
			return nil, valueDiags
		}
		*dest = value
	}
	return mgr, nil
}

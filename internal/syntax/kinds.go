package syntax

import sitter "github.com/smacker/go-tree-sitter"

// Node kinds of the tree-sitter Rust grammar used across the module.
const (
	KindSourceFile        = "source_file"
	KindStruct            = "struct_item"
	KindUnion             = "union_item"
	KindEnum              = "enum_item"
	KindEnumVariant       = "enum_variant"
	KindFunction          = "function_item"
	KindFunctionSignature = "function_signature_item"
	KindTypeAlias         = "type_item"
	KindAssociatedType    = "associated_type"
	KindConst             = "const_item"
	KindStatic            = "static_item"
	KindTrait             = "trait_item"
	KindField             = "field_declaration"
	KindModule            = "mod_item"
	KindMacroDefinition   = "macro_definition"
	KindMacroInvocation   = "macro_invocation"
	KindImpl              = "impl_item"
	KindUse               = "use_declaration"
	KindAttributeItem     = "attribute_item"
	KindLineComment       = "line_comment"
	KindBlockComment      = "block_comment"

	KindIdentifier      = "identifier"
	KindTypeIdentifier  = "type_identifier"
	KindFieldIdentifier = "field_identifier"
	KindShorthandField  = "shorthand_field_identifier"
	KindPrimitiveType   = "primitive_type"
	KindIntegerLiteral  = "integer_literal"
	KindSelf            = "self"
	KindSuper           = "super"
	KindCrate           = "crate"

	KindScopedIdentifier     = "scoped_identifier"
	KindScopedTypeIdentifier = "scoped_type_identifier"
	KindGenericType          = "generic_type"
	KindGenericFunction      = "generic_function"
	KindTypeParameters       = "type_parameters"
	KindConstrainedTypeParam = "constrained_type_parameter"
	KindOptionalTypeParam    = "optional_type_parameter"

	KindBlock              = "block"
	KindDeclarationList    = "declaration_list"
	KindLetDeclaration     = "let_declaration"
	KindParameters         = "parameters"
	KindParameter          = "parameter"
	KindSelfParameter      = "self_parameter"
	KindClosureExpression  = "closure_expression"
	KindClosureParameters  = "closure_parameters"
	KindCallExpression     = "call_expression"
	KindFieldExpression    = "field_expression"
	KindStructExpression   = "struct_expression"
	KindFieldInitializer   = "field_initializer"
	KindMatchExpression    = "match_expression"
	KindMatchArm           = "match_arm"
	KindMatchPattern       = "match_pattern"
	KindLetCondition       = "let_condition"
	KindForExpression      = "for_expression"
	KindIfExpression       = "if_expression"
	KindWhileExpression    = "while_expression"
	KindStructPattern      = "struct_pattern"
	KindTupleStructPattern = "tuple_struct_pattern"
	KindFieldPattern       = "field_pattern"
)

// declarationKinds are the item kinds whose "name" field declares a name.
var declarationKinds = map[string]bool{
	KindStruct:            true,
	KindUnion:             true,
	KindEnum:              true,
	KindEnumVariant:       true,
	KindFunction:          true,
	KindFunctionSignature: true,
	KindTypeAlias:         true,
	KindAssociatedType:    true,
	KindConst:             true,
	KindStatic:            true,
	KindTrait:             true,
	KindField:             true,
	KindModule:            true,
	KindMacroDefinition:   true,
}

var patternKinds = map[string]bool{
	"tuple_pattern":           true,
	KindTupleStructPattern:    true,
	KindStructPattern:         true,
	"ref_pattern":             true,
	"mut_pattern":             true,
	"reference_pattern":       true,
	"captured_pattern":        true,
	"or_pattern":              true,
	"slice_pattern":           true,
	"range_pattern":           true,
	"remaining_field_pattern": true,
}

// patternFieldParents own a child in their "pattern" field.
var patternFieldParents = map[string]bool{
	KindLetDeclaration: true,
	KindParameter:      true,
	KindForExpression:  true,
	KindLetCondition:   true,
	KindFieldPattern:   true,
}

var expressionKinds = map[string]bool{
	KindCallExpression:         true,
	KindFieldExpression:        true,
	"binary_expression":        true,
	"unary_expression":         true,
	"reference_expression":     true,
	KindIntegerLiteral:         true,
	"float_literal":            true,
	"string_literal":           true,
	"raw_string_literal":       true,
	"char_literal":             true,
	"boolean_literal":          true,
	KindBlock:                  true,
	KindIfExpression:           true,
	KindMatchExpression:        true,
	"parenthesized_expression": true,
	"tuple_expression":         true,
	"array_expression":         true,
	"return_expression":        true,
	"unit_expression":          true,
	"index_expression":         true,
	"type_cast_expression":     true,
	KindClosureExpression:      true,
	KindStructExpression:       true,
	KindMacroInvocation:        true,
	KindGenericFunction:        true,
	"assignment_expression":    true,
	"compound_assignment_expr": true,
	"range_expression":         true,
	"try_expression":           true,
	"await_expression":         true,
	"loop_expression":          true,
	KindWhileExpression:        true,
	KindForExpression:          true,
	"break_expression":         true,
	"continue_expression":      true,
	"unsafe_block":             true,
	"async_block":              true,
	"const_block":              true,
}

// nonExpressionParents never hold a bare identifier in expression position.
var nonExpressionParents = map[string]bool{
	KindScopedIdentifier:       true,
	KindScopedTypeIdentifier:   true,
	"scoped_use_list":          true,
	"use_list":                 true,
	"use_as_clause":            true,
	"use_wildcard":             true,
	KindUse:                    true,
	"token_tree":               true,
	"attribute":                true,
	KindAttributeItem:          true,
	"inner_attribute_item":     true,
	"lifetime":                 true,
	"label":                    true,
	"visibility_modifier":      true,
	KindMacroDefinition:        true,
	"macro_rule":               true,
	KindMacroInvocation:        true,
	KindStructPattern:          true,
	KindTupleStructPattern:     true,
	KindFieldPattern:           true,
	KindSelfParameter:          true,
	KindGenericType:            true,
	"type_arguments":           true,
	"extern_crate_declaration": true,
}

var nameLikeKinds = map[string]bool{
	KindIdentifier:      true,
	KindTypeIdentifier:  true,
	KindFieldIdentifier: true,
}

var nameRefKinds = map[string]bool{
	KindIdentifier:      true,
	KindTypeIdentifier:  true,
	KindFieldIdentifier: true,
	KindPrimitiveType:   true,
	KindSelf:            true,
	KindSuper:           true,
	KindCrate:           true,
}

// IsField reports whether n is the child stored under field of parent.
func IsField(parent *sitter.Node, field string, n *sitter.Node) bool {
	if parent == nil {
		return false
	}
	return SameNode(parent.ChildByFieldName(field), n)
}

// IsDeclaration reports whether kind is an item kind that declares a name.
func IsDeclaration(kind string) bool {
	return declarationKinds[kind]
}

// IsName reports whether n introduces a name: the name of a declaration, a
// generic parameter, or an identifier bound by a pattern.
func IsName(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	kind := n.Type()
	if kind == KindShorthandField {
		return true
	}
	if !nameLikeKinds[kind] {
		return false
	}
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch {
	case declarationKinds[parent.Type()]:
		return IsField(parent, "name", n)
	case parent.Type() == KindTypeParameters:
		return kind == KindTypeIdentifier
	case parent.Type() == KindConstrainedTypeParam:
		return IsField(parent, "left", n)
	case parent.Type() == KindOptionalTypeParam:
		return IsField(parent, "name", n)
	}
	return kind == KindIdentifier && IsPattern(n)
}

// IsTupleIndex reports whether n is the integer naming a tuple field, as
// the `0` in `s.0`.
func IsTupleIndex(n *sitter.Node) bool {
	if n == nil || n.Type() != KindIntegerLiteral {
		return false
	}
	parent := n.Parent()
	return parent != nil && parent.Type() == KindFieldExpression && IsField(parent, "field", n)
}

// IsNameRef reports whether n is a usage of a name. Tuple indices count as
// field names.
func IsNameRef(n *sitter.Node) bool {
	if IsTupleIndex(n) {
		return true
	}
	if n == nil || !nameRefKinds[n.Type()] {
		return false
	}
	if IsName(n) {
		return false
	}
	if parent := n.Parent(); parent != nil {
		switch parent.Type() {
		case "lifetime", "label", KindSelfParameter:
			return false
		}
	}
	return true
}

// IsPattern reports whether n sits in pattern position.
func IsPattern(n *sitter.Node) bool {
	if n == nil || IsTupleIndex(n) {
		return false
	}
	if patternKinds[n.Type()] || n.Type() == KindShorthandField {
		return true
	}
	parent := n.Parent()
	if parent == nil {
		return false
	}
	pk := parent.Type()
	switch {
	case patternFieldParents[pk]:
		return IsField(parent, "pattern", n)
	case pk == KindClosureParameters:
		return n.Type() != KindParameter
	case pk == KindMatchPattern:
		return !IsField(parent, "condition", n) && SameNode(parent.NamedChild(0), n)
	case patternKinds[pk]:
		return !IsField(parent, "type", n)
	}
	return false
}

// IsExpression reports whether n is an expression node. A tuple index is
// part of its field expression, not a literal.
func IsExpression(n *sitter.Node) bool {
	if n == nil || IsTupleIndex(n) {
		return false
	}
	kind := n.Type()
	if expressionKinds[kind] {
		return true
	}
	switch kind {
	case KindIdentifier, KindSelf, KindScopedIdentifier:
	default:
		return false
	}
	if IsName(n) || IsPattern(n) {
		return false
	}
	parent := n.Parent()
	if parent == nil {
		return false
	}
	if nonExpressionParents[parent.Type()] || declarationKinds[parent.Type()] {
		return false
	}
	return true
}

// PathOf returns the path whose last segment is n: the enclosing scoped
// path when n is its name, otherwise n itself.
func PathOf(n *sitter.Node) *sitter.Node {
	if parent := n.Parent(); parent != nil {
		switch parent.Type() {
		case KindScopedIdentifier, KindScopedTypeIdentifier:
			if IsField(parent, "name", n) {
				return parent
			}
		}
	}
	return n
}

// NameOf returns the "name" field of a declaration node.
func NameOf(decl *sitter.Node) *sitter.Node {
	if decl == nil {
		return nil
	}
	return decl.ChildByFieldName("name")
}

// Ancestors returns n followed by each of its ancestors up to the root.
func Ancestors(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for ; n != nil; n = n.Parent() {
		out = append(out, n)
	}
	return out
}

// NamedChildren returns the named children of n.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

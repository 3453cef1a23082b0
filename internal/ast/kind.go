package ast

// Kind is the closed set of node kinds the engine understands. Syntax outside
// this set is carried as KindRaw.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindProgram
	KindIdentifier
	KindLiteral
	KindArray
	KindMember
	KindCall
	KindImport
	KindImportSpecifier
	KindFunctionDecl
	KindFunction // anonymous function expression, arrow or not
	KindBlock
	KindReturn
	KindExpressionStmt
	KindUnary
	KindUpdate
	KindBinary
	KindIf
	KindVarDecl
	KindVarDeclarator
	KindRaw

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:         "Invalid",
	KindProgram:         "Program",
	KindIdentifier:      "Identifier",
	KindLiteral:         "Literal",
	KindArray:           "ArrayExpression",
	KindMember:          "MemberExpression",
	KindCall:            "CallExpression",
	KindImport:          "ImportDeclaration",
	KindImportSpecifier: "ImportSpecifier",
	KindFunctionDecl:    "FunctionDeclaration",
	KindFunction:        "FunctionExpression",
	KindBlock:           "BlockStatement",
	KindReturn:          "ReturnStatement",
	KindExpressionStmt:  "ExpressionStatement",
	KindUnary:           "UnaryExpression",
	KindUpdate:          "UpdateExpression",
	KindBinary:          "BinaryExpression",
	KindIf:              "IfStatement",
	KindVarDecl:         "VariableDeclaration",
	KindVarDeclarator:   "VariableDeclarator",
	KindRaw:             "Raw",
}

func (k Kind) String() string {
	if k >= kindCount {
		return "Invalid"
	}
	return kindNames[k]
}

// KindByName maps a kind name such as "BinaryExpression" back to its Kind.
// "ArrowFunctionExpression" is accepted as an alias of FunctionExpression.
func KindByName(name string) (Kind, bool) {
	if name == "ArrowFunctionExpression" {
		return KindFunction, true
	}
	for k := KindProgram; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// IsStatementList reports whether the kind holds a statement sequence in its
// "body" field.
func (k Kind) IsStatementList() bool {
	return k == KindProgram || k == KindBlock
}

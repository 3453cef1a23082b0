package printer

import (
	"strings"

	"github.com/jward/jsnext/internal/ast"
)

const (
	precLowest     = 0
	precSequence   = 1
	precAssign     = 2
	precCond       = 3
	precNullish    = 4
	precAnd        = 5
	precBitOr      = 6
	precBitXor     = 7
	precBitAnd     = 8
	precEquality   = 9
	precRelational = 10
	precShift      = 11
	precAdditive   = 12
	precMultiply   = 13
	precExponent   = 14
	precUnary      = 15
	precUpdate     = 16
	precCall       = 17
	precPrimary    = 18
)

func binaryPrec(op string) int {
	switch op {
	case "??", "||":
		return precNullish
	case "&&":
		return precAnd
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	case "&":
		return precBitAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", ">", "<=", ">=", "instanceof", "in":
		return precRelational
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiply
	case "**":
		return precExponent
	}
	// Assignment operators are the only other infix forms.
	if strings.HasSuffix(op, "=") {
		return precAssign
	}
	return precSequence
}

func (p *printer) precedence(id ast.NodeID) int {
	n := p.t.Node(id)
	switch n.Kind {
	case ast.KindBinary:
		return binaryPrec(n.Op)
	case ast.KindFunction:
		if n.Arrow {
			return precAssign
		}
		return precPrimary
	case ast.KindUnary:
		return precUnary
	case ast.KindUpdate:
		if n.Prefix {
			return precUnary
		}
		return precUpdate
	case ast.KindCall, ast.KindMember:
		return precCall
	case ast.KindRaw:
		return rawPrec(n.Name)
	}
	return precPrimary
}

// rawPrec is the binding strength of an opaque grammar node when it appears
// as an operand.
func rawPrec(typ string) int {
	switch typ {
	case "sequence_expression":
		return precSequence
	case "assignment_expression", "augmented_assignment_expression", "yield_expression":
		return precAssign
	case "ternary_expression":
		return precCond
	case "await_expression":
		return precUnary
	case "new_expression":
		return precCall
	case "call_expression", "member_expression", "subscript_expression":
		return precCall
	}
	return precPrimary
}

// bracketed grammar nodes delimit their children with their own
// punctuation. The value is the weakest expression that fits a hole.
var bracketed = map[string]int{
	"parenthesized_expression": precSequence,
	"template_substitution":    precSequence,
	"computed_property_name":   precSequence,
	"arguments":                precAssign,
	"array":                    precAssign,
	"object":                   precAssign,
	"pair":                     precAssign,
}

// rawChildPrec is the minimum precedence an expression needs to be printed
// without parentheses in a hole of an opaque grammar node.
func rawChildPrec(typ string) int {
	if min, ok := bracketed[typ]; ok {
		return min
	}
	switch own := rawPrec(typ); {
	case own == precPrimary, own <= precAssign:
		return precAssign
	default:
		return own + 1
	}
}

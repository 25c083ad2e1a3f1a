package grammars

import (
	"context"

	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// Calculator builds Expr -> Sum -> Product -> Num -> Digit over '+', '*'
// and decimal digits. Every symbol computes the INT value of its text.
//
// In the ambiguous variant a Num is two shorter Nums, with the value
// Num[1]*10 + Num[2], so "1234" yields several values.
func Calculator(ctx context.Context, ambiguous bool) (*grammar.Grammar, error) {
	b := grammar.NewBuilder()
	r := &rules{ctx: ctx, b: b}

	expr := b.Nonterminal("Expr", term.Unit, term.Int)
	sum := b.Nonterminal("Sum", term.Unit, term.Int)
	product := b.Nonterminal("Product", term.Unit, term.Int)
	num := b.Nonterminal("Num", term.Unit, term.Int)
	digit := b.Nonterminal("Digit", term.Unit, term.Int)
	char := b.Char()

	r.add(expr, sum, expr.SetOut(sum.Out()))

	sum1 := sum.At(1)
	r.add(sum, sum1, b.Literal("+"), product, sum.SetOut(term.Add(sum1.Out(), product.Out())))
	r.add(sum, product, sum.SetOut(product.Out()))

	product1 := product.At(1)
	r.add(product, product1, b.Literal("*"), num, product.SetOut(term.Mul(product1.Out(), num.Out())))
	r.add(product, num, product.SetOut(num.Out()))

	r.add(num, digit, num.SetOut(digit.Out()))
	num1, num2 := num.At(1), num.At(2)
	if ambiguous {
		r.add(num, num1, num2, num.SetOut(term.Add(term.Mul(num1.Out(), term.IntTerm(10)), num2.Out())))
	} else {
		r.add(num, num1, digit, num.SetOut(term.Add(term.Mul(num1.Out(), term.IntTerm(10)), digit.Out())))
	}

	r.add(digit, char,
		grammar.Guard(term.InRange(char.Out(), term.CharTerm('0'), term.CharTerm('9'))),
		digit.SetOut(term.Sub(term.Ord(char.Out()), term.Ord(term.CharTerm('0')))),
	)
	return r.seal()
}

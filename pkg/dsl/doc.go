/*
Package dsl provides a Go DSL for programmatically constructing dialogues.

It lets developers define conversations with a type-safe, fluent builder instead of
authoring YAML or JSON documents. This is particularly useful for generated content,
unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New("tavern").Participants("barkeep").Var("gold", domain.Int(5))

	b.Add("start").
		Says("barkeep", "What'll it be?").
		Option("ale", "An ale, please.", domain.Compare("gold", domain.OpGreaterOrEqual, domain.Int(2))).
		Option("bye", "Nothing.")

	b.Add("ale").
		Says("barkeep", "Here you go.").
		OnEnter(domain.ModifyVar("gold", domain.Int(-2))).
		Go("bye")

	b.Add("bye").End()

	dialogue, err := b.Build() // validated, ready for parley.Engine.CreateContext
*/
package dsl

/*
Package dsl provides a fluent builder for constructing episode graphs in Go.

It is an alternative to YAML or JSON documents, useful for generated stories,
tests and demos.

Example usage:

	b := dsl.New()

	b.Add("intro").
		Audio("s1/intro.mp3").
		Go("fork")

	b.Add("fork").
		Audio("s1/fork.mp3").
		At(12).
		Choice("left", "Take the left tunnel", "cave").
		Choice("right", "Climb the ridge", "ridge")

	b.Add("cave").Audio("s1/cave.mp3").Sets("found_cave")
	b.Add("ridge").Audio("s1/ridge.mp3")

	g, err := b.Build() // err lists integrity violations, g is always usable
*/
package dsl

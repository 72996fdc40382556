/*
Package episodes implements the authoring side of episode persistence.

A Manager serialises whole-document saves per episode across goroutines, and
across replicas when a distributed locker is configured. Episodes that have no
document yet open as a graph holding a single start node.
*/
package episodes

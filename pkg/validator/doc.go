// Package validator checks the referential integrity of episode graphs and
// normalizes them for playback.
//
// Every finding is a non-fatal *domain.ValidationError. Authoring tools show
// them next to a best-effort graph; playback treats a broken edge as absent
// and fails only the branch that uses it.
package validator

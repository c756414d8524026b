// Package engine executes a solver.Plan: it walks the plan's steps in
// dependency order, checking a backend.Backend for freshness before each
// one runs, and expanding a rule's command template with its matched
// bindings plus the synthetic %in/%out variables before handing it to the
// backend to execute.
package engine

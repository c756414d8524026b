// Package pattern implements the variable pattern language at the core of
// ruleweaver: parsing pattern terms into literal/variable segments, computing
// the profile of a term, matching a sequence of pattern terms against a word
// list, and expanding bindings back into a word list.
//
// Nothing in this package touches the filesystem, a shell, or any other
// external collaborator. Match and Expand are pure functions of their
// arguments.
package pattern

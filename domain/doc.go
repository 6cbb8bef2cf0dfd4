// Package domain defines the core types and repository interfaces for
// showrunner. It is the contract between the launcher, the Lua hook engine,
// and the SQLite persistence layer in the db package.
//
// The types here are storage-agnostic: the db package maps them to and from
// its own row representations.
package domain

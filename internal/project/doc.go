// Package project stores the projects and tasks that scan imports write
// into.
//
// Every tenant owns an implicit Inbox project that absorbs imports with no
// explicit destination; EnsureInbox creates it lazily on first use. Named
// projects are created per import when the caller asks for one. Tasks are
// append-only records hanging off a project.
//
// Storage is in-memory; the store is the single source of truth for a
// running process and is safe for concurrent use.
package project

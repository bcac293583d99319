package history

// Package history keeps a local SQLite log of uploaded models so that access
// keys can be looked up again after the application was closed.

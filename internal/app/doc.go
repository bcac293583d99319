package app

// Package app wires the recognizer, dataset files, the upload client and the
// upload history to the state store. Every side effect the UI triggers goes
// through a Controller method, which then dispatches actions describing the
// outcome.

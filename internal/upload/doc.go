package upload

// Package upload implements the two-phase model save protocol: a key and a pair
// of pre-signed write locations are requested from the model collection endpoint,
// then the weights and the model document are written to those locations.

package model

// Package model defines the application state shown by the UI: the training
// phase, label slots with their thumbnails and example counts, microphone and
// prediction status. All changes go through Reduce, a pure function of the
// current state and one typed Action.

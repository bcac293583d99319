package dataset

// Package dataset reads and writes the labeled-example container file (.dat):
// a little-endian header with the label count and per-slot thumbnail metadata,
// followed by the recognizer's serialized examples and the RGBA thumbnails.

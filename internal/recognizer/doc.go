package recognizer

// Package recognizer defines the boundary to the sound recognizer used by the
// application and provides Transfer, a nearest-prototype recognizer over
// log-power spectrograms. Examples are keyed by label ("0".."9", one per slot)
// and can be serialized to the opaque blob stored in dataset files.

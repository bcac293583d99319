package audio

// Package audio captures microphone input through miniaudio (malgo), converts
// between 16-bit PCM and normalized float samples and reads or writes WAV files.

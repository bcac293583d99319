package platform

// Package platform contains OS integration glue: filesystem helpers,
// revealing saved datasets in the file manager and capability errors for
// hosts that lack a feature (no capture device, no clipboard).

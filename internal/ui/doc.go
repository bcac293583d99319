package ui

// Package ui contains the Fyne desktop interface. It renders the application
// state held by the model store and forwards user actions to the app
// controller. All UI strings are localized via Localization.

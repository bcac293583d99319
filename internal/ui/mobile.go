package ui

import (
	"fyne.io/fyne/v2"
)

// isMobileDevice checks if the app is running on a mobile device
func isMobileDevice() bool {
	dev := fyne.CurrentDevice()
	return dev != nil && dev.IsMobile()
}

// selectorColumns returns how many selector cells share a row
func selectorColumns() int {
	if !isMobileDevice() {
		return DesktopColumns
	}
	o := fyne.CurrentDevice().Orientation()
	if o == fyne.OrientationHorizontalLeft || o == fyne.OrientationHorizontalRight {
		return DesktopColumns
	}
	return MobileColumns
}

//go:build !gocv

package segment

// NewContourLocator returns nil in builds without OpenCV; the segmenter then
// searches the whole image.
func NewContourLocator() Locator { return nil }

// ContourLocatorAvailable reports whether the OpenCV locator was compiled in.
func ContourLocatorAvailable() bool { return false }

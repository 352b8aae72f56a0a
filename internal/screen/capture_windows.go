//go:build windows

package screen

// No external tool on Windows; the screenshot backend uses GDI directly.
func nativeTool() (tool, bool) { return nil, false }

//go:build !darwin && !linux && !windows

package screen

func nativeTool() (tool, bool) { return nil, false }

package common

import (
	"path/filepath"
	"strings"
)

// CodecToFileExtension returns the container extension (with leading dot) a clip recorded
// with the given FourCC is written with.
func CodecToFileExtension(codec string) string {
	codec = strings.ToUpper(codec)
	switch codec {
	case "H264", "X264", "AVC1":
		return ".h264" // raw elementary stream, same as the Pi camera's native output
	case "MJPG":
		return ".avi" // MJPG is typically stored in AVI containers
	case "MP4V":
		return ".mp4"
	case "YUYV":
		return ".avi" // Raw formats typically use AVI
	default:
		return ".avi"
	}
}

// MediaMimeType returns the MIME type for a still or clip based on its file extension
func MediaMimeType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "h264":
		return "video/h264"
	case "mp4":
		return "video/mp4"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

package postprocessing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xfrr/goffmpeg/models"
	"github.com/xfrr/goffmpeg/transcoder"
	"github.com/yeti47/motioncam/ccc/logging"
)

// ClipInfo describes a finalized clip
type ClipInfo struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
	Probed   bool // false when the values are estimates rather than read from the file
}

type ClipInspector interface {
	// InspectClip reads the metadata of the clip at path. recorded is the wall-clock time
	// the clip was open and is used where the file carries no duration.
	InspectClip(path string, recorded time.Duration) (*ClipInfo, error)
}

// FFmpegClipInspector probes clips with ffprobe through goffmpeg
type FFmpegClipInspector struct {
	logger logging.Logger
}

func NewFFmpegClipInspector(logger logging.Logger) *FFmpegClipInspector {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &FFmpegClipInspector{logger: logger}
}

func (i *FFmpegClipInspector) InspectClip(path string, recorded time.Duration) (*ClipInfo, error) {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return nil, fmt.Errorf("failed to probe clip %s: %w", path, err)
	}

	info := clipInfoFromMetadata(path, trans.MediaFile().Metadata(), recorded)
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}

	i.logger.Debug("Clip inspected", "path", path, "duration", info.Duration.String(),
		"width", info.Width, "height", info.Height, "codec", info.Codec)
	return info, nil
}

// clipInfoFromMetadata picks the first video stream. Raw H.264 streams carry no container
// duration, in which case the recorded wall-clock duration is kept.
func clipInfoFromMetadata(path string, metadata models.Metadata, recorded time.Duration) *ClipInfo {
	info := &ClipInfo{Path: path, Duration: recorded, Probed: true}

	for _, stream := range metadata.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			info.Codec = stream.CodecName
			break
		}
	}

	if seconds, err := strconv.ParseFloat(metadata.Format.Duration, 64); err == nil && seconds > 0 {
		info.Duration = time.Duration(seconds * float64(time.Second))
	}
	return info
}

type nopClipInspector struct{}

// NopClipInspector reports the recorded duration without touching the file. Used when
// probe_clips is disabled.
var NopClipInspector ClipInspector = &nopClipInspector{}

func (i *nopClipInspector) InspectClip(path string, recorded time.Duration) (*ClipInfo, error) {
	return &ClipInfo{Path: path, Duration: recorded}, nil
}

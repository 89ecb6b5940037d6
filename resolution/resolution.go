package resolution

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a capture frame size in pixels. The zero value means "camera default".
type Resolution struct {
	Width  int
	Height int
}

func EmptyResolution() Resolution {
	return Resolution{}
}

// named sizes accepted by Parse, covering the usual Pi camera modes
var named = map[string]Resolution{
	"480p":  {Width: 640, Height: 480},
	"720p":  {Width: 1280, Height: 720},
	"972p":  {Width: 1296, Height: 972},
	"1080p": {Width: 1920, Height: 1080},
	"1944p": {Width: 2592, Height: 1944},
}

func (r Resolution) String() string {
	if r.IsEmpty() {
		return "default"
	}
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

func (r Resolution) IsEmpty() bool {
	return r.Width == 0 && r.Height == 0
}

// Parse reads a capture size written as "1296x972", "1296:972" or one of the named
// sizes such as "720p". An empty string yields the empty resolution.
func Parse(value string) (Resolution, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return EmptyResolution(), nil
	}

	if res, ok := named[s]; ok {
		return res, nil
	}

	w, h, found := strings.Cut(s, "x")
	if !found {
		w, h, found = strings.Cut(s, ":")
	}
	if !found {
		return Resolution{}, fmt.Errorf("unknown resolution %q", value)
	}

	width, err := dimension(w)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution %q: width %w", value, err)
	}
	height, err := dimension(h)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution %q: height %w", value, err)
	}
	return Resolution{Width: width, Height: height}, nil
}

func dimension(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("is not a number: %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

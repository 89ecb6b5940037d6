package resolution

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		input    string
		expected Resolution
	}{
		{"1296x972", Resolution{Width: 1296, Height: 972}},
		{"1296:972", Resolution{Width: 1296, Height: 972}},
		{" 640X480 ", Resolution{Width: 640, Height: 480}},
		{"720p", Resolution{Width: 1280, Height: 720}},
		{"1944P", Resolution{Width: 2592, Height: 1944}},
		{"", Resolution{}},
	}

	for _, c := range cases {
		got, err := Parse(c.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", c.input, err)
			continue
		}
		if got != c.expected {
			t.Errorf("Parse(%q) = %v, expected %v", c.input, got, c.expected)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"big", "1296x", "x972", "0x480", "640x-1", "4kp", "1x2x3", "640:480:1"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestResolution_String(t *testing.T) {
	if got := (Resolution{Width: 1296, Height: 972}).String(); got != "1296x972" {
		t.Errorf("String() = %s", got)
	}
	if got := EmptyResolution().String(); got != "default" {
		t.Errorf("Empty resolution String() = %s", got)
	}
	if !EmptyResolution().IsEmpty() {
		t.Error("EmptyResolution should be empty")
	}
}

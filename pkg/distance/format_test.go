package distance

import "testing"

func TestCategory(t *testing.T) {
	tests := []struct {
		cm   float64
		want string
	}{
		{0, "unknown"},
		{-3, "unknown"},
		{30, "very close"},
		{70, "close"},
		{150, "nearby"},
		{250, "moderate"},
		{400, "far"},
	}

	for _, tt := range tests {
		if got := Category(tt.cm); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.cm, got, tt.want)
		}
	}
}

func TestFormatLabel(t *testing.T) {
	tests := []struct {
		class string
		cm    float64
		unit  string
		want  string
	}{
		{"cup", 45, "cm", "cup: 45.0cm"},
		{"person", 125, "cm", "person: 125.0cm"},
		{"person", 125, "m", "person: 1.25m"},
		{"chair", 100, "m", "chair: 100.0cm"},
	}

	for _, tt := range tests {
		if got := FormatLabel(tt.class, tt.cm, tt.unit); got != tt.want {
			t.Errorf("FormatLabel(%q, %v, %q) = %q, want %q", tt.class, tt.cm, tt.unit, got, tt.want)
		}
	}
}

func TestParseDimension(t *testing.T) {
	if ParseDimension("height") != DimensionHeight || ParseDimension(" Height ") != DimensionHeight {
		t.Error("height should parse to DimensionHeight")
	}
	if ParseDimension("width") != DimensionWidth || ParseDimension("") != DimensionWidth {
		t.Error("anything else should parse to DimensionWidth")
	}
	if DimensionHeight.String() != "height" || DimensionWidth.String() != "width" {
		t.Error("String() mismatch")
	}
}

package parser

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name   string
		sample string
		want   FormatHint
	}{
		{"json array", `[{"a":1}]`, FormatJSON},
		{"ndjson", "{\"a\":1}\n{\"b\":2}\n", FormatNDJSON},
		{"single json object, no newline", `{"a":1}`, FormatUnknown},
		{"csv header", "ts_iso,dir,s,f,body_json\n2024...", FormatCSV},
		{"csv header, reordered columns", "dir,ts_iso,body_json,s,f\nH->E,2024...", FormatCSV},
		{"empty", "", FormatUnknown},
		{"whitespace only", "   \n\t", FormatUnknown},
		{"garbage", "not a known format at all", FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectFormat([]byte(tc.sample))
			if got != tc.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tc.sample, got, tc.want)
			}
		})
	}
}

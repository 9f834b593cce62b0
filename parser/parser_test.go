package parser

import "testing"

func TestExtractCounter(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		want  int
		found bool
	}{
		{
			name:  "rightmost number wins",
			html:  `<html><body><div class="wpem-viewed-event">205 205 people viewed this event.</div></body></html>`,
			want:  205,
			found: true,
		},
		{
			name:  "single number",
			html:  `<div class="wpem-viewed-event">42 people viewed this event.</div>`,
			want:  42,
			found: true,
		},
		{
			name:  "number split across child elements",
			html:  `<div class="wpem-viewed-event"><span>17</span> people viewed <b>this</b> event.</div>`,
			want:  17,
			found: true,
		},
		{
			name:  "extra classes on the marker element",
			html:  `<div class="wpem-event-footer wpem-viewed-event highlight">9 9 people viewed this event.</div>`,
			want:  9,
			found: true,
		},
		{
			name:  "no marker element",
			html:  `<html><body><div class="wpem-event-title">Robotics camp</div></body></html>`,
			found: false,
		},
		{
			name:  "marker without digits",
			html:  `<div class="wpem-viewed-event">Hidden</div>`,
			found: false,
		},
		{
			name:  "first matching element is used",
			html:  `<div class="wpem-viewed-event">3 people viewed this event.</div><div class="wpem-viewed-event">999</div>`,
			want:  3,
			found: true,
		},
		{
			name:  "malformed html still yields the counter",
			html:  `<div class="wpem-viewed-event">88 people viewed this event.<div><p>`,
			want:  88,
			found: true,
		},
		{
			name:  "non-html garbage",
			html:  "\x00\x01 not a document at all",
			found: false,
		},
		{
			name:  "empty input",
			html:  "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractCounter(tt.html)
			if found != tt.found {
				t.Fatalf("found=%v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Fatalf("value=%d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  205\n\t205   people viewed this event.  ")
	want := "205 205 people viewed this event."
	if got != want {
		t.Fatalf("NormalizeText=%q, want %q", got, want)
	}
}

package markdown

import "testing"

func TestToSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{
			name: "heading and paragraph",
			in:   "# Welcome\n\nThis is *really* simple",
			want: "Welcome. This is really simple.",
		},
		{
			name: "keeps existing punctuation",
			in:   "Is it done?\n\nYes!",
			want: "Is it done? Yes!",
		},
		{
			name: "link text without url",
			in:   "Read [the docs](https://example.com) first.",
			want: "Read the docs first.",
		},
		{
			name: "list items",
			in:   "- one\n- two\n",
			want: "one. two.",
		},
		{
			name: "code skipped",
			in:   "Run this:\n\n```sh\nrm -rf /\n```\n\nThen wait.",
			want: "Run this: Then wait.",
		},
		{
			name: "code kept",
			in:   "```\nhello\n```",
			opts: Options{KeepCode: true},
			want: "hello.",
		},
		{
			name: "inline code and html",
			in:   "Call `Stream` now.\n\n<div>ignored</div>\n",
			want: "Call Stream now.",
		},
		{
			name: "soft line breaks",
			in:   "first line\nsecond line",
			want: "first line second line.",
		},
		{
			name: "image alt text",
			in:   "![a cat](cat.png)",
			want: "a cat.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToSpeech([]byte(tt.in), tt.opts); got != tt.want {
				t.Errorf("ToSpeech() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	if got := Normalize("  cafe\u0301 \n\t ok "); got != "caf\u00e9 ok" {
		t.Errorf("Normalize() = %q", got)
	}
}

package tool

import (
	"testing"
)

func TestParsePageRanges(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []PageRange
		wantErr bool
	}{
		{
			name: "mixed singles and ranges",
			expr: "1-5, 8, 10-12",
			want: []PageRange{{1, 5}, {8, 8}, {10, 12}},
		},
		{
			name: "single page",
			expr: "3",
			want: []PageRange{{3, 3}},
		},
		{
			name: "whitespace tolerated",
			expr: " 1 - 3 ,  7 ",
			want: []PageRange{{1, 3}, {7, 7}},
		},
		{
			name: "empty tokens skipped",
			expr: "1,,3",
			want: []PageRange{{1, 1}, {3, 3}},
		},
		{
			name:    "reversed range",
			expr:    "5-2",
			wantErr: true,
		},
		{
			name:    "zero page",
			expr:    "0-3",
			wantErr: true,
		},
		{
			name:    "negative page",
			expr:    "-1",
			wantErr: true,
		},
		{
			name:    "garbage token",
			expr:    "1,two,3",
			wantErr: true,
		},
		{
			name:    "empty expression",
			expr:    "",
			wantErr: true,
		},
		{
			name:    "only commas",
			expr:    ", ,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRanges(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageRanges(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePageRanges(%q) = %v, want %v", tt.expr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

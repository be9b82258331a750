package classifier

import "testing"

func TestExtractJSONFromText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"match": true}`, `{"match": true}`},
		{"fenced", "```json\n{\"match\": true}\n```", `{"match": true}`},
		{"prose wrapped", `Here is the result: {"match": true} hope that helps`, `{"match": true}`},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSONFromText(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

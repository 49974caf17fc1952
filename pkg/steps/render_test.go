package steps

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		data    map[string]any
		want    string
		wantErr bool
	}{
		{"plain", "tool_name_accuracy.py", nil, "tool_name_accuracy.py", false},
		{"value", "{{ .scriptDir }}/a.py", map[string]any{"scriptDir": "/opt"}, "/opt/a.py", false},
		{"sprig default", `{{ .python | default "python3" }}`, map[string]any{"python": ""}, "python3", false},
		{"missing key", "{{ .nope }}", map[string]any{}, "", true},
		{"bad syntax", "{{ .x", map[string]any{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(tt.name, tt.text, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

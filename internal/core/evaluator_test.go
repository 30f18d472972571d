package core

import "testing"

func TestEvaluateCondition(t *testing.T) {
	env := map[string]any{"Name": "smp-lab-01", "Port": 22022}

	tests := []struct {
		condition string
		want      bool
		wantErr   bool
	}{
		{condition: "", want: true},
		{condition: `Name startsWith "smp"`, want: true},
		{condition: `Port == 22`, want: false},
		{condition: `Name +`, wantErr: true},
		{condition: `Port`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := EvaluateCondition(tt.condition, env)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EvaluateCondition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

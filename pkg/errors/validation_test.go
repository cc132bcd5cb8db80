package errors

import "testing"

func TestValidateDeclarationName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"node_w", false},
		{"_margin", false},
		{"hGap2", false},
		{"", true},
		{"2gap", true},
		{"node-w", true},
		{"st.node_w", true},
		{"node w", true},
	}

	for _, tt := range tests {
		err := ValidateDeclarationName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDeclarationName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidConfig) {
			t.Errorf("ValidateDeclarationName(%q) code = %v, want %v", tt.name, GetCode(err), ErrCodeInvalidConfig)
		}
	}
}

func TestValidateDeclarationNames(t *testing.T) {
	if err := ValidateDeclarationNames([]string{"node_w", "node_h", "h_gap", "v_gap", "margin"}); err != nil {
		t.Errorf("valid names should pass: %v", err)
	}
	if err := ValidateDeclarationNames([]string{"node_w", "node_w"}); err == nil {
		t.Error("duplicate names should fail")
	}
	if err := ValidateDeclarationNames([]string{"node_w", ""}); err == nil {
		t.Error("empty name should fail")
	}
}

func TestValidateOutputFormat(t *testing.T) {
	allowed := []string{"text", "json", "yaml"}
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"text", false},
		{"json", false},
		{"yaml", false},
		{"JSON", true}, // case-sensitive
		{"xml", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateOutputFormat(tt.format, allowed)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOutputFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormatToken(t *testing.T) {
	tests := []struct {
		token   string
		wantErr bool
	}{
		{"svg", false},
		{"svg-v2", false},
		{"", true},
		{"svg png", true},
		{"svg\n", true},
	}

	for _, tt := range tests {
		err := ValidateFormatToken(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormatToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
		}
	}
}

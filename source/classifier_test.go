package source

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestClassifier_IsUltrasound(t *testing.T) {
	c := NewClassifier(nil, nil)

	tests := []struct {
		text string
		want bool
	}{
		{"Siêu âm thai", true},
		{"Khám tổng quát", false},
		{"ultrasound screening", true},
		{"Xét nghiệm máu", false},
		{"SIEU AM bung", true},
		{"Doppler US", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.IsUltrasound(tt.text); got != tt.want {
				t.Errorf("IsUltrasound(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifier_UnicodeForms(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		text     string
		want     bool
	}{
		{"decomposed text", nil, norm.NFD.String("Siêu âm thai"), true},
		{"decomposed keyword", []string{norm.NFD.String("siêu âm")}, "Siêu âm tim", true},
		{"both decomposed", []string{norm.NFD.String("siêu âm")}, norm.NFD.String("SIÊU ÂM bụng"), true},
		{"decomposed non match", nil, norm.NFD.String("Khám tổng quát"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.keywords, nil)
			if got := c.IsUltrasound(tt.text); got != tt.want {
				t.Errorf("IsUltrasound(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifier_InScope(t *testing.T) {
	c := NewClassifier(nil, nil)

	tests := []struct {
		status string
		text   string
		want   bool
	}{
		{"pending", "Siêu âm thai", true},
		{"Scheduled", "Siêu âm tim", true},
		{"completed", "Siêu âm thai", false},
		{"cancelled", "ultrasound", false},
		{"pending", "Khám tổng quát", false},
	}

	for _, tt := range tests {
		a := &Appointment{Status: tt.status, ProcedureText: tt.text}
		if got := c.InScope(a); got != tt.want {
			t.Errorf("InScope(%s, %q) = %v, want %v", tt.status, tt.text, got, tt.want)
		}
	}
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := NewClassifier([]string{" Echo ", ""}, []string{"booked"})

	if !c.IsUltrasound("echocardiography") {
		t.Error("Expected custom keyword to match")
	}
	if c.IsUltrasound("Siêu âm thai") {
		t.Error("Expected defaults to be replaced by custom keywords")
	}
	if statuses := c.Statuses(); len(statuses) != 1 || statuses[0] != "booked" {
		t.Errorf("Statuses() = %v", statuses)
	}
}

package capture

import (
	"testing"
	"time"
)

func TestParamsValidate(t *testing.T) {
	valid := Params{Duration: 10 * time.Second, FPS: 30, Width: 640, Height: 480, Subject: "mouse1"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid params, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero duration", func(p *Params) { p.Duration = 0 }},
		{"negative duration", func(p *Params) { p.Duration = -time.Second }},
		{"zero fps", func(p *Params) { p.FPS = 0 }},
		{"fps too high", func(p *Params) { p.FPS = 500 }},
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"negative height", func(p *Params) { p.Height = -1 }},
		{"width too large", func(p *Params) { p.Width = 5000 }},
		{"subject with slash", func(p *Params) { p.Subject = "a/b" }},
		{"subject with backslash", func(p *Params) { p.Subject = `a\b` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.modify(&p)

			err := p.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if ReasonOf(err) != ReasonInvalidParameter {
				t.Errorf("Expected reason %s, got %s", ReasonInvalidParameter, ReasonOf(err))
			}
		})
	}
}

func TestParamsExpectedFrames(t *testing.T) {
	p := Params{Duration: 10 * time.Second, FPS: 30}
	if got := p.ExpectedFrames(); got != 300 {
		t.Errorf("Expected 300 frames, got %d", got)
	}

	p = Params{Duration: 1500 * time.Millisecond, FPS: 20}
	if got := p.ExpectedFrames(); got != 30 {
		t.Errorf("Expected 30 frames, got %d", got)
	}
}

func TestParamsSubjectOrDefault(t *testing.T) {
	p := Params{Subject: ""}
	if got := p.SubjectOrDefault(); got != "default" {
		t.Errorf("Expected 'default', got %q", got)
	}

	p.Subject = "mouse1"
	if got := p.SubjectOrDefault(); got != "mouse1" {
		t.Errorf("Expected 'mouse1', got %q", got)
	}
}

func TestDefaultParamsAreValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("Expected default params to validate, got %v", err)
	}
}

package console

import (
	"strings"
	"testing"
)

func TestBeginInteractionBanner(t *testing.T) {
	tests := []struct {
		name string
		opts []BeginOption
		want func(string) bool
	}{
		{
			name: "default banner",
			opts: nil,
			want: func(s string) bool {
				return strings.Contains(s, DefaultBannerHint)
			},
		},
		{
			name: "nil optional banner uses default",
			opts: []BeginOption{WithOptionalBanner(nil)},
			want: func(s string) bool {
				return strings.Contains(s, DefaultBannerHint)
			},
		},
		{
			name: "empty banner",
			opts: []BeginOption{WithBanner("")},
			want: func(s string) bool { return s == "" },
		},
		{
			name: "custom banner",
			opts: []BeginOption{WithBanner("Custom")},
			want: func(s string) bool { return s == "Custom" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, widget, _ := newTestAdapter(newFakeEvaluator())
			a.BeginInteraction(tt.opts...)

			banner := strings.TrimSuffix(widget.String(), DefaultPrimaryPrompt)
			if !tt.want(banner) {
				t.Errorf("banner = %q", banner)
			}
			if !strings.HasSuffix(widget.String(), DefaultPrimaryPrompt) {
				t.Errorf("widget = %q, want primary prompt last", widget.String())
			}
		})
	}
}

func TestBeginInteractionInstallsSink(t *testing.T) {
	eval := newFakeEvaluator()
	a, _, _ := newTestAdapter(eval)

	a.BeginInteraction(WithBanner(""))

	if eval.sink != a {
		t.Fatal("adapter is not the evaluator's sink")
	}
	if a.State() != Interacting {
		t.Errorf("State() = %v, want interacting", a.State())
	}
	if a.Continuing() {
		t.Error("Continuing() = true after begin")
	}
}

func TestBeginInteractionResetsContinuation(t *testing.T) {
	eval := newFakeEvaluator()
	eval.more = func(string) bool { return true }
	a, widget, _ := newTestAdapter(eval)

	a.BeginInteraction(WithBanner(""))
	typeText(a, "do")
	a.HandleKey(enter)
	if !a.Continuing() {
		t.Fatal("Continuing() = false, want true")
	}
	a.EndInteraction()

	widget.Reset()
	a.BeginInteraction(WithBanner(""))
	if a.Continuing() {
		t.Error("Continuing() = true after re-entering")
	}
	if widget.String() != DefaultPrimaryPrompt {
		t.Errorf("widget = %q, want primary prompt", widget.String())
	}
}

func TestBeginInteractionTwiceIsNoop(t *testing.T) {
	eval := newFakeEvaluator()
	a, widget, _ := newTestAdapter(eval)

	a.BeginInteraction(WithBanner("first"))
	typeText(a, "keep")
	widget.Reset()

	a.BeginInteraction(WithBanner("second"))

	if widget.Len() != 0 {
		t.Errorf("second begin wrote %q", widget.String())
	}
	if eval.redirs != 1 {
		t.Errorf("Redirect calls = %d, want 1", eval.redirs)
	}
	if a.Pending() != "keep" {
		t.Errorf("Pending() = %q, want it untouched", a.Pending())
	}

	// One end still restores the original sink
	a.EndInteraction()
	if eval.sink != eval.initial {
		t.Error("original sink not restored")
	}
}

func TestEndInteractionWhileIdleIsNoop(t *testing.T) {
	eval := newFakeEvaluator()
	a, _, host := newTestAdapter(eval)

	a.EndInteraction()
	a.Exit()

	if host.restores != 0 || host.exits != 0 {
		t.Errorf("idle end notified host: %+v", host)
	}
	if eval.redirs != 0 {
		t.Errorf("idle end redirected sink %d times", eval.redirs)
	}
}

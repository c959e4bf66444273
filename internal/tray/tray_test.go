package tray

import "testing"

func TestTray_Toggle(t *testing.T) {
	tr := New(false)

	var got []bool
	tr.OnToggle(func(enabled bool) {
		got = append(got, enabled)
	})

	tr.handleToggle()
	tr.handleToggle()

	if tr.IsEnabled() {
		t.Error("two toggles should return to disabled")
	}
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("callback states = %v, want [true false]", got)
	}
}

func TestTray_Guidance(t *testing.T) {
	tr := New(true)

	tests := []struct {
		msg  string
		want string
	}{
		{msg: "Hold steady, image is blurry.", want: "Hold steady, image is blurry."},
		{msg: "", want: guidanceNone},
	}
	for _, tt := range tests {
		tr.SetGuidance(tt.msg)
		if tr.Guidance() != tt.msg {
			t.Errorf("Guidance() = %q, want %q", tr.Guidance(), tt.msg)
		}
		if title := guidanceTitle(tr.Guidance()); title != tt.want {
			t.Errorf("title = %q, want %q", title, tt.want)
		}
	}
}

func TestTray_OpenCallback(t *testing.T) {
	tr := New(true)
	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()
	if !opened {
		t.Error("open callback not called")
	}
}

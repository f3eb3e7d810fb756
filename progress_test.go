package rvth

import "testing"

func TestProgressTypeString(t *testing.T) {
	tests := []struct {
		typ  ProgressType
		want string
	}{
		{ProgressExtract, "extract"},
		{ProgressImport, "import"},
		{ProgressRecrypt, "recrypt"},
		{ProgressVerify, "verify"},
		{ProgressWADResign, "wad-resign"},
		{ProgressType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestCallProgressNilCallback(t *testing.T) {
	if !callProgress(nil, ProgressState{}) {
		t.Error("callProgress(nil, ...) = false, want true")
	}
}

func TestCallProgressInvokesCallback(t *testing.T) {
	var got ProgressState
	called := false
	cb := func(state ProgressState) bool {
		called = true
		got = state
		return false
	}

	want := ProgressState{Type: ProgressRecrypt, Processed: 3, Total: 10, Bank: 2}
	if callProgress(cb, want) {
		t.Error("callProgress should propagate the callback's return value")
	}
	if !called {
		t.Error("callback was not invoked")
	}
	if got != want {
		t.Errorf("callback received %+v, want %+v", got, want)
	}
}

func TestNoopProgressAlwaysContinues(t *testing.T) {
	if !noopProgress(ProgressState{}) {
		t.Error("noopProgress() = false, want true")
	}
}

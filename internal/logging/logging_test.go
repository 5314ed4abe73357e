package logging

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Info("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	SetLogger(nil)
	Logf("should not panic")
}

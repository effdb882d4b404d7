package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestFileSinkReceivesAllLevels(t *testing.T) {
	var buf bytes.Buffer
	log := Logger{File: &buf}

	log.Debugf("hashing %s", "Git-Config")
	log.Infof("pushed %d item(s)", 2)

	out := buf.String()
	if !strings.Contains(out, "[debug] hashing Git-Config") {
		t.Errorf("expected debug line in file sink, got: %q", out)
	}
	if !strings.Contains(out, "[info] pushed 2 item(s)") {
		t.Errorf("expected info line in file sink, got: %q", out)
	}
}

func TestErrorfAndReturn(t *testing.T) {
	log := Logger{}
	err := log.ErrorfAndReturn("failed to load %s", "manifest")
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "failed to load manifest" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestNoFileSinkIsSafe(t *testing.T) {
	log := Logger{}
	log.record("info", "nothing %s", "happens")
}

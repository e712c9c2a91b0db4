package main

import "testing"

func TestParseTypeCommandRegistered(t *testing.T) {
	if parseTypeCmd == nil {
		t.Fatal("parseTypeCmd is nil")
	}
	found := false
	for _, c := range rootCmd.Commands() {
		if c == parseTypeCmd {
			found = true
		}
	}
	if !found {
		t.Error("parseTypeCmd is not registered on rootCmd")
	}
}

func TestRunParseTypeRejectsMissingFile(t *testing.T) {
	parseTypeFlags.file = "/nonexistent/emailpolicy.pt"
	if err := runParseType(parseTypeCmd, nil); err == nil {
		t.Error("runParseType() error = nil, want error for a missing file")
	}
}

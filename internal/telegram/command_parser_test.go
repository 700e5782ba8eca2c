package telegram

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  Command
		wantArgs string
	}{
		{"plain text", "Going to Tokyo next week", CmdNone, "Going to Tokyo next week"},
		{"plain text trimmed", "  hello  ", CmdNone, "hello"},
		{"empty", "", CmdNone, ""},
		{"start", "/start", CmdStart, ""},
		{"help uppercase", "/HELP", CmdHelp, ""},
		{"status with bot name", "/status@travel_bot", CmdStatus, ""},
		{"travelers", "/travelers", CmdTravelers, ""},
		{"travellers spelling", "/travellers", CmdTravelers, ""},
		{"pay", "/pay", CmdPay, ""},
		{"reset", "/reset now", CmdReset, "now"},
		{"unknown", "/quote please", CmdUnknown, "please"},
		{"doc inline", "/doc Passport K1234567Z", CmdDoc, "Passport K1234567Z"},
		{"doc keeps newlines", "/doc\nP<SGPLIM<<WEI\nK1234567Z8SGP", CmdDoc, "P<SGPLIM<<WEI\nK1234567Z8SGP"},
		{"doc with bot name", "/doc@travel_bot  E-ticket  SQ12 ", CmdDoc, "E-ticket  SQ12"},
		{"args normalized", "/reset   a    b", CmdReset, "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseCommand(tt.input)
			if cmd != tt.wantCmd {
				t.Errorf("ParseCommand(%q) cmd = %q, want %q", tt.input, cmd, tt.wantCmd)
			}
			if args != tt.wantArgs {
				t.Errorf("ParseCommand(%q) args = %q, want %q", tt.input, args, tt.wantArgs)
			}
		})
	}
}

func TestNormalizeSpaces(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello world", "hello world"},
		{"  hello   world  ", "hello world"},
		{"hello\t\nworld", "hello world"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeSpaces(tt.input); got != tt.want {
			t.Errorf("normalizeSpaces(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

package telegram

import (
	"strings"
)

type Command string

const (
	CmdNone      Command = ""
	CmdStart     Command = "start"
	CmdHelp      Command = "help"
	CmdStatus    Command = "status"
	CmdTravelers Command = "travelers"
	CmdDoc       Command = "doc"
	CmdPay       Command = "pay"
	CmdReset     Command = "reset"
	CmdUnknown   Command = "unknown"
)

var commands = map[string]Command{
	"start":      CmdStart,
	"help":       CmdHelp,
	"status":     CmdStatus,
	"travelers":  CmdTravelers,
	"travellers": CmdTravelers,
	"doc":        CmdDoc,
	"pay":        CmdPay,
	"reset":      CmdReset,
}

// ParseCommand разбирает "/cmd@bot аргументы".
// Обычный текст -> CmdNone и текст целиком.
// Аргументы /doc не трогаем: в скопированном паспорте важны переводы строк.
func ParseCommand(text string) (Command, string) {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "/") {
		return CmdNone, text
	}

	head, rest := text, ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, rest = text[:i], text[i+1:]
	}
	name := strings.ToLower(strings.TrimPrefix(head, "/"))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	cmd, ok := commands[name]
	if !ok {
		return CmdUnknown, normalizeSpaces(rest)
	}
	if cmd == CmdDoc {
		return cmd, strings.TrimSpace(rest)
	}
	return cmd, normalizeSpaces(rest)
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

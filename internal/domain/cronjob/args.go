package cronjob

import "strings"

// Reserved parameters.
const (
	ParamModule   = "module"
	ParamAction   = "action"
	ParamLanguage = "language"
)

// ParseArgs turns command-line tokens into parameters. argv[0] is the
// program name. Tokens are split on the first "=", dashes are trimmed
// from both ends of keys, and tokens with an empty key or value are
// dropped. Later keys overwrite earlier ones.
func ParseArgs(argv []string) map[string]string {
	params := make(map[string]string)
	if len(argv) < 2 {
		return params
	}
	for _, tok := range argv[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		key = strings.Trim(key, "-")
		if key == "" || value == "" {
			continue
		}
		params[key] = value
	}
	return params
}

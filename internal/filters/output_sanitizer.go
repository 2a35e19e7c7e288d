package filters

import (
	"regexp"
)

var (
	destructiveShellPattern    = regexp.MustCompile(`(?i)(?:rm\s+-[rf]+\s+/|mkfs\b|dd\s+if=|>\s*/dev/sd|fork\s*bomb|:\(\)\s*\{|chmod\s+-R\s+777\s+/|shutdown\s|reboot\s|init\s+0|kill\s+-9\s+-1)`)
	destructiveSQLPattern      = regexp.MustCompile(`(?i)\b(?:DROP\s+(?:TABLE|DATABASE|SCHEMA|INDEX)\b|TRUNCATE\s+TABLE\b|DELETE\s+FROM\s+\S+\s*(?:;|$)|ALTER\s+TABLE\s+\S+\s+DROP\b|UPDATE\s+\S+\s+SET\s+.*WHERE\s+1\s*=\s*1)`)
	scriptInjectionPattern     = regexp.MustCompile(`(?i)<script[\s>]|javascript\s*:|on(?:load|error|click)\s*=|eval\s*\(|document\.(?:cookie|write)|window\.(?:location|open)`)
	networkAttackPattern       = regexp.MustCompile(`(?i)(?:nc\s+-[elp]+|ncat\s+-[elp]+|bash\s+-i\s+>&|/dev/tcp/|reverse.?shell|bind.?shell|msfvenom|metasploit)`)
	privilegeEscalationPattern = regexp.MustCompile(`(?i)(?:sudo\s+su\b|passwd\s+root|chmod\s+[u+]*s\b|setuid|/etc/shadow|/etc/passwd\s*>>)`)
)

const redactedNotice = "[⚠ 安全上の理由により、危険なコマンドを除去しました]"

// OutputSanitizer strips dangerous command fragments from LLM responses
// before they reach the caller: destructive shell and SQL, script injection,
// reverse shells, privilege escalation. Stateless, safe for concurrent use.
type OutputSanitizer struct{}

func NewOutputSanitizer() *OutputSanitizer {
	return &OutputSanitizer{}
}

// Sanitize replaces every dangerous fragment with a redaction notice and
// returns the list of removed fragments as "category: match".
func (s *OutputSanitizer) Sanitize(text string) (string, []string) {
	sanitized := text
	var removed []string

	categories := []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"破壊的シェルコマンド", destructiveShellPattern},
		{"破壊的SQLコマンド", destructiveSQLPattern},
		{"スクリプトインジェクション", scriptInjectionPattern},
		{"ネットワーク攻撃コマンド", networkAttackPattern},
		{"権限昇格コマンド", privilegeEscalationPattern},
	}
	for _, cat := range categories {
		for _, match := range cat.pattern.FindAllString(sanitized, -1) {
			removed = append(removed, cat.label+": "+match)
		}
		sanitized = cat.pattern.ReplaceAllString(sanitized, redactedNotice)
	}
	return sanitized, removed
}

package telegram

import (
	"fmt"
	"regexp"
	"strings"
)

// MarkdownV2 special characters that need escaping
const markdownV2SpecialChars = "\\_*[]()~`>#+-=|{}.!"

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var result strings.Builder
	for _, r := range text {
		if strings.ContainsRune(markdownV2SpecialChars, r) {
			result.WriteRune('\\')
		}
		result.WriteRune(r)
	}
	return result.String()
}

// escapeCode escapes characters inside inline code and code blocks (only `
// and \)
func escapeCode(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	return strings.ReplaceAll(text, "`", "\\`")
}

// markdownRule converts one markdown element to its MarkdownV2 form
type markdownRule struct {
	re     *regexp.Regexp
	render func(m []string) string
}

// Rules run in order; anything matched earlier is protected from later rules
// and from escaping.
var markdownRules = []markdownRule{
	{
		re:     regexp.MustCompile("(?s)```([a-zA-Z]*)\\n?(.*?)```"),
		render: func(m []string) string { return "```" + m[1] + "\n" + escapeCode(m[2]) + "```" },
	},
	{
		re:     regexp.MustCompile("`([^`]+)`"),
		render: func(m []string) string { return "`" + escapeCode(m[1]) + "`" },
	},
	{
		re: regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`),
		render: func(m []string) string {
			url := strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(m[2])
			return "[" + escapeMarkdownV2(m[1]) + "](" + url + ")"
		},
	},
	{
		re:     regexp.MustCompile(`\*\*(.+?)\*\*`),
		render: func(m []string) string { return "*" + escapeMarkdownV2(m[1]) + "*" },
	},
	{
		re:     regexp.MustCompile(`~~(.+?)~~`),
		render: func(m []string) string { return "~" + escapeMarkdownV2(m[1]) + "~" },
	},
}

func placeholderKey(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

// FormatMarkdownV2 converts the markdown used in bot messages (bold, inline
// code, code blocks, links, strikethrough) to Telegram MarkdownV2, escaping
// everything else
func FormatMarkdownV2(text string) string {
	var saved []string
	for _, rule := range markdownRules {
		text = rule.re.ReplaceAllStringFunc(text, func(match string) string {
			saved = append(saved, rule.render(rule.re.FindStringSubmatch(match)))
			return placeholderKey(len(saved) - 1)
		})
	}

	text = escapeMarkdownV2(text)

	// Later elements may contain earlier placeholders, so restore backwards.
	for i := len(saved) - 1; i >= 0; i-- {
		text = strings.Replace(text, placeholderKey(i), saved[i], 1)
	}
	return strings.TrimSpace(text)
}

package provider

import (
	"strings"

	"github.com/minios-linux/xctrans/langs"
)

// DefaultPrompt is the system prompt sent with every request.
// {{sourceLang}} and {{targetLang}} are replaced with English language names.
const DefaultPrompt = `You are a professional translation expert. I am internationalizing a desktop or mobile application I am developing myself. Translate the text of the user message from {{sourceLang}} directly into {{targetLang}}.

RULES:
- Reply with the translated text only
- Do not add prefixes, suffixes, quotation marks, tildes, delimiters or any other additional characters
- Do not explain or comment on the translation
- Keep format specifiers (%@, %lld, %1$@, {name}) and line breaks exactly as they are
- If the text should not be translated (a product name, a code), reply with it unchanged`

// RenderPrompt fills the language placeholders of a prompt template.
func RenderPrompt(template, sourceLang, targetLang string) string {
	r := strings.NewReplacer(
		"{{sourceLang}}", langName(sourceLang),
		"{{targetLang}}", langName(targetLang),
		"{{sourceCode}}", sourceLang,
		"{{targetCode}}", targetLang,
	)
	return r.Replace(template)
}

func langName(code string) string {
	if code == "" {
		return "the source language"
	}
	name := langs.DisplayName(code)
	if name == code {
		return code
	}
	return name + " (" + code + ")"
}

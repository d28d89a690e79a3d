package xdt

import "strings"

// noiseElements are XML elements that every PLCopen/CODESYS export
// rewrites on save. Lines opening them carry no engineering change.
var noiseElements = []string{
	"project",
	"fileHeader",
	"contentHeader",
	"coordinateInfo",
	"addData",
	"ObjectId",
}

const plcopenDataPrefix = `<data name="http://www.3s-software.com/plcopenxml/`

// FilterNoise removes file headers, hunk headers and XML boilerplate
// lines from a rendered unified diff. Everything else is kept verbatim.
func FilterNoise(rendered string) string {
	if rendered == "" {
		return ""
	}
	var b strings.Builder
	inHeader := true
	for _, line := range strings.SplitAfter(rendered, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@@") {
			inHeader = false
			continue
		}
		if inHeader && (strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++")) {
			continue
		}
		if isNoiseBody(line) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// isNoiseBody reports whether a hunk body line is XML boilerplate.
func isNoiseBody(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case ' ', '+', '-':
	default:
		return false
	}
	content := strings.TrimSpace(line[1:])
	if strings.HasPrefix(content, "<?xml") || strings.HasPrefix(content, plcopenDataPrefix) {
		return true
	}
	for _, name := range noiseElements {
		if opensElement(content, name) {
			return true
		}
	}
	return false
}

// opensElement reports whether s starts with an opening tag of name,
// so "<project>" and "<project a=1>" match but "<projectX>" does not.
func opensElement(s, name string) bool {
	tag := "<" + name
	if !strings.HasPrefix(s, tag) {
		return false
	}
	if len(s) == len(tag) {
		return true
	}
	switch s[len(tag)] {
	case ' ', '\t', '>', '/':
		return true
	}
	return false
}

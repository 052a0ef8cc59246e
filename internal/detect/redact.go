package detect

import "unicode/utf8"

// Redacted replaces masked values in record details.
const Redacted = "[REDACTED]"

// maxDetailBytes caps each stored value.
const maxDetailBytes = 1024

// snapshot copies the submission fields for the record, masking redacted
// fields and truncating long values.
func (p *Pipeline) snapshot(s *Submission) map[string][]string {
	out := make(map[string][]string, len(s.Fields))
	for name, vals := range s.Fields {
		cp := make([]string, len(vals))
		_, masked := p.redact[name]
		for i, v := range vals {
			if masked {
				cp[i] = Redacted
				continue
			}
			cp[i] = truncate(v, maxDetailBytes)
		}
		out[name] = cp
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

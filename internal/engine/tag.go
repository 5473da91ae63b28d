package engine

import "strings"

// TagPrefix is the literal prefix of the tracking line embedded in a
// destination event's notes. The full line is "SOURCE_ID: <identity-hex>".
const TagPrefix = "SOURCE_ID: "

// ExtractTag scans notes for a tag line and returns the identity it
// carries. The line may appear anywhere in the notes. Lines whose payload
// is not a plausible hex identity are ignored, so ordinary prose that
// happens to start with the prefix cannot corrupt tracking.
func ExtractTag(notes string) (Identity, bool) {
	for _, line := range strings.Split(notes, "\n") {
		rest, ok := strings.CutPrefix(line, TagPrefix)
		if !ok {
			continue
		}
		v := strings.TrimSpace(rest)
		if isHexIdentity(v) {
			return Identity(v), true
		}
	}
	return "", false
}

// UpsertTag returns notes with the tag line for id ensured, leaving every
// other byte untouched. An existing tag line is rewritten in place; extra
// duplicate tag lines are dropped. When no tag line exists the tag is
// prepended on its own line.
func UpsertTag(notes string, id Identity) string {
	tagLine := TagPrefix + string(id)
	if notes == "" {
		return tagLine
	}

	lines := strings.Split(notes, "\n")
	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, TagPrefix); ok && isHexIdentity(strings.TrimSpace(rest)) {
			if replaced {
				continue
			}
			out = append(out, tagLine)
			replaced = true
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append([]string{tagLine}, out...)
	}
	return strings.Join(out, "\n")
}

// isHexIdentity accepts lowercase hex strings of at least 128 bits. The
// lower bound keeps old 32-char digests readable while rejecting stray
// prose.
func isHexIdentity(s string) bool {
	if len(s) < 32 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

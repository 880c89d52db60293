package loader

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// WellIDs maps each file name to a well identifier by diffing the names:
// the longest prefix and suffix shared by every name are removed and what
// remains identifies the well. The split never lands inside a digit run,
// so "Well 1-" and "Well 10-" yield "1" and "10", and zero-padded numbers
// are normalised ("07" becomes "7").
//
// A single name has nothing to diff against; its identifier is the text
// between the last separator and the literal part of indicator.
func WellIDs(names []string, separator, indicator string) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	if len(names) == 1 {
		id := normaliseID(singleID(names[0], separator, indicator))
		if id == "" {
			return nil, fmt.Errorf("cannot derive well id from %q", names[0])
		}
		ids[names[0]] = id
		return ids, nil
	}

	prefix, suffix := commonAffixes(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		id := normaliseID(name[prefix : len(name)-suffix])
		if id == "" {
			return nil, fmt.Errorf("cannot derive well id from %q", name)
		}
		if other, dup := seen[id]; dup {
			return nil, fmt.Errorf("files %q and %q both map to well %s", other, name, id)
		}
		seen[id] = name
		ids[name] = id
	}
	return ids, nil
}

// commonAffixes returns the byte lengths of the shared prefix and suffix,
// backed off so neither cuts through a digit run.
func commonAffixes(names []string) (prefix, suffix int) {
	minLen := len(names[0])
	for _, n := range names[1:] {
		minLen = min(minLen, len(n))
	}

	first := names[0]
	for prefix < minLen && allHave(names, func(n string) bool { return n[prefix] == first[prefix] }) {
		prefix++
	}
	for prefix > 0 && isDigit(first[prefix-1]) {
		prefix--
	}

	at := func(n string, i int) byte { return n[len(n)-1-i] }
	for suffix < minLen-prefix && allHave(names, func(n string) bool { return at(n, suffix) == at(first, suffix) }) {
		suffix++
	}
	for suffix > 0 && isDigit(at(first, suffix-1)) {
		suffix--
	}
	return prefix, suffix
}

func singleID(name, separator, indicator string) string {
	stem := name
	if lit, _, _ := strings.Cut(indicator, "*"); lit != "" {
		if i := strings.LastIndex(stem, lit); i >= 0 {
			stem = stem[:i]
		}
	} else {
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	if separator != "" {
		if i := strings.LastIndex(stem, separator); i >= 0 {
			stem = stem[i+len(separator):]
		}
	}
	return stem
}

func normaliseID(s string) string {
	s = strings.Trim(s, " _-.")
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return strconv.Itoa(n)
	}
	return s
}

func allHave(names []string, pred func(string) bool) bool {
	for _, n := range names {
		if !pred(n) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

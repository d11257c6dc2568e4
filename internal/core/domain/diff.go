package domain

import "strings"

// DiffFile is the portion of a unified diff touching one file.
type DiffFile struct {
	Path  string
	Patch string
}

// SplitUnifiedDiff splits a git unified diff into per-file sections.
// Text before the first "diff --git" header is kept as its own section.
func SplitUnifiedDiff(diff string) []DiffFile {
	var files []DiffFile
	var cur *DiffFile
	var sb strings.Builder

	flush := func() {
		if cur != nil {
			cur.Patch = sb.String()
			if strings.TrimSpace(cur.Patch) != "" {
				files = append(files, *cur)
			}
		}
		sb.Reset()
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			cur = &DiffFile{Path: diffPath(line)}
		} else if cur == nil {
			cur = &DiffFile{}
		}
		sb.WriteString(line)
	}
	flush()
	return files
}

// diffPath extracts b/<path> from a "diff --git a/x b/y" header.
func diffPath(header string) string {
	header = strings.TrimSpace(header)
	if i := strings.LastIndex(header, " b/"); i >= 0 {
		return header[i+3:]
	}
	return strings.TrimPrefix(header, "diff --git ")
}
